// This file implements the credential store: salted hash issue and
// verification, and the credential table insertion hook.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mesh-intelligence/shelter/internal/password"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

const (
	colPassword = "password"
	colHash     = "hash"
	colSalt     = "salt"
)

// dummySalt is hashed against when a handle is unknown so the failure costs
// the same as a wrong secret.
const dummySalt = "c2hlbHRlci1kdW1teS1zYWx0"

// credentialHook turns raw secrets into hash and salt before insert. A
// password column is replaced by hash and salt. A hash column with no salt
// column, or with an empty salt, holds a raw secret and is hashed in place.
// A supplied hash and salt pair must already be well formed.
type credentialHook struct {
	hasher *password.Hasher
}

func (h credentialHook) Columns(cols []string) ([]string, error) {
	hasPassword := slices.Contains(cols, colPassword)
	hasHash := slices.Contains(cols, colHash)
	hasSalt := slices.Contains(cols, colSalt)

	switch {
	case hasPassword && (hasHash || hasSalt):
		return nil, fmt.Errorf("%w: password column excludes hash and salt", types.ErrInvalidData)
	case hasPassword:
		out := slices.DeleteFunc(slices.Clone(cols), func(c string) bool { return c == colPassword })
		return append(out, colHash, colSalt), nil
	case hasHash && !hasSalt:
		return append(slices.Clone(cols), colSalt), nil
	default:
		return cols, nil
	}
}

func (h credentialHook) Values(cols []string, vals []any) ([]any, error) {
	p := slices.Index(cols, colPassword)
	hi := slices.Index(cols, colHash)
	si := slices.Index(cols, colSalt)

	switch {
	case p >= 0:
		hash, salt, err := h.hashValue(vals[p])
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(vals)+1)
		out = append(out, vals[:p]...)
		out = append(out, vals[p+1:]...)
		return append(out, hash, salt), nil
	case hi >= 0 && si < 0:
		hash, salt, err := h.hashValue(vals[hi])
		if err != nil {
			return nil, err
		}
		out := slices.Clone(vals)
		out[hi] = hash
		return append(out, salt), nil
	case hi >= 0 && isEmpty(vals[si]):
		hash, salt, err := h.hashValue(vals[hi])
		if err != nil {
			return nil, err
		}
		out := slices.Clone(vals)
		out[hi] = hash
		out[si] = salt
		return out, nil
	case hi >= 0:
		hash, _ := vals[hi].(string)
		salt, _ := vals[si].(string)
		if err := password.CheckEncoded(hash, salt); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidData, err)
		}
		return vals, nil
	default:
		return vals, nil
	}
}

func (h credentialHook) hashValue(v any) (string, string, error) {
	secret, ok := v.(string)
	if !ok || secret == "" {
		return "", "", fmt.Errorf("%w: empty secret", types.ErrInvalidData)
	}
	return h.hasher.HashNew(secret)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// IssueCredential stores a salted hash of secret under handle. Duplicate
// handles are detected by the UNIQUE constraint, not by a prior read.
func (b *Backend) IssueCredential(ctx context.Context, handle, secret string) (*types.Identity, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || secret == "" {
		return nil, types.ErrInvalidData
	}

	var ident *types.Identity
	err := b.withTx(ctx, "issue_credential", func(tx *sql.Tx) error {
		id, err := b.tables[types.CredentialTable].Insert(ctx, tx,
			[]string{"handle", colPassword},
			[]any{handle, secret})
		switch {
		case isUniqueViolation(err):
			return types.ErrDuplicateHandle
		case errors.Is(err, types.ErrInvalidData):
			return err
		case err != nil:
			return storageErr("issue credential", err)
		}
		ident = &types.Identity{ID: id, Handle: handle}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ident, nil
}

// Authenticate verifies secret for handle. An unknown handle and a wrong
// secret fail identically with ErrInvalidCredential.
func (b *Backend) Authenticate(ctx context.Context, handle, secret string) (*types.Identity, error) {
	ident, err := b.authenticate(ctx, strings.TrimSpace(handle), secret)
	b.metrics.auth.WithLabelValues(resultLabel(err)).Inc()
	return ident, err
}

func (b *Backend) authenticate(ctx context.Context, handle, secret string) (*types.Identity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrShelterDetached
	}

	var (
		id         int64
		hash, salt string
	)
	err := b.db.QueryRowContext(ctx,
		"SELECT id, hash, salt FROM credential WHERE handle = ?", handle).Scan(&id, &hash, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		_, _ = b.hasher.Hash(secret, dummySalt)
		return nil, types.ErrInvalidCredential
	}
	if err != nil {
		return nil, storageErr("authenticate", err)
	}

	ok, err := b.hasher.Verify(secret, hash, salt)
	if errors.Is(err, password.ErrMalformed) {
		b.logger.Warn("stored credential is malformed",
			slog.Int64("credential_id", id), slog.String("error", err.Error()))
		return nil, types.ErrInvalidCredential
	}
	if err != nil {
		return nil, storageErr("authenticate", err)
	}
	if !ok || secret == "" {
		return nil, types.ErrInvalidCredential
	}
	return &types.Identity{ID: id, Handle: handle}, nil
}
