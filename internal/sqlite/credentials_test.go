package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

func TestIssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	ident, err := b.IssueCredential(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", ident.Handle)
	assert.Positive(t, ident.ID)

	_, err = b.IssueCredential(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, types.ErrDuplicateHandle)

	got, err := b.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, ident.ID, got.ID)

	_, err = b.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, types.ErrInvalidCredential)

	_, err = b.Authenticate(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, types.ErrInvalidCredential, "failed duplicate issue must not overwrite")
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.IssueCredential(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, unknownErr := b.Authenticate(ctx, "mallory", "pw1")
	_, wrongErr := b.Authenticate(ctx, "alice", "nope")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr, wrongErr)
	assert.ErrorIs(t, unknownErr, types.ErrInvalidCredential)
}

func TestAuthenticateMalformedStoredCredential(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	// Rows written behind the table hook can still be damaged.
	_, err := b.db.Exec("INSERT INTO credential (handle, hash, salt) VALUES ('bob', 'abc', '!!!')")
	require.NoError(t, err)

	_, malformedErr := b.Authenticate(ctx, "bob", "x")
	_, unknownErr := b.Authenticate(ctx, "mallory", "x")

	assert.ErrorIs(t, malformedErr, types.ErrInvalidCredential)
	assert.NotErrorIs(t, malformedErr, types.ErrStorageFailure)
	assert.Equal(t, unknownErr, malformedErr)
}

func TestIssueCredentialValidation(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.IssueCredential(ctx, "  ", "pw")
	assert.ErrorIs(t, err, types.ErrInvalidData)
	_, err = b.IssueCredential(ctx, "alice", "")
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = b.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, types.ErrInvalidCredential)
}

func TestCredentialStoresNoPlaintext(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.IssueCredential(ctx, "alice", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, 0, countRows(t, b,
		"SELECT COUNT(*) FROM credential WHERE hash LIKE '%correct horse%' OR salt LIKE '%correct horse%'"))
}

func TestHandlesAreTrimmed(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.IssueCredential(ctx, " alice ", "pw")
	require.NoError(t, err)
	_, err = b.IssueCredential(ctx, "alice", "pw")
	assert.ErrorIs(t, err, types.ErrDuplicateHandle)
	_, err = b.Authenticate(ctx, "alice ", "pw")
	assert.NoError(t, err)
}
