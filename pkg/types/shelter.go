package types

import (
	"context"
	"errors"
	"io"
	"time"
)

// Shelter is the core of the shelter records system. Callers attach to a
// backend, run operations, and detach when done. Every operation is atomic:
// on failure nothing it would have written is visible.
type Shelter interface {
	// Attach opens the backend described by config. Creates DataDir and the
	// schema if they do not exist. Returns ErrAlreadyAttached if called while
	// already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Intake creates the animal and houses it in a room of its department.
	// Fails with ErrNoCapacity when every such room is full.
	Intake(ctx context.Context, animal Animal) (*Animal, error)

	// Adopt records the adoption and frees the animal's room.
	// Fails with ErrAnimalNotFound, ErrPersonNotFound or ErrAlreadyAdopted.
	Adopt(ctx context.Context, animalID, personID int64, date time.Time) (*Adoption, error)

	// Vaccinate appends a vaccination for the animal.
	Vaccinate(ctx context.Context, animalID, vaccineID int64) (*Vaccination, error)

	// IssueCredential stores a salted hash for handle.
	// Fails with ErrDuplicateHandle if the handle exists.
	IssueCredential(ctx context.Context, handle, secret string) (*Identity, error)

	// Authenticate checks secret against the stored hash for handle.
	// Unknown handles and wrong secrets both fail with ErrInvalidCredential.
	Authenticate(ctx context.Context, handle, secret string) (*Identity, error)

	// BulkLoad inserts every record of a CSV source into the named table and
	// returns the number of rows loaded.
	BulkLoad(ctx context.Context, table string, r io.Reader) (int, error)
}

// Lifecycle errors.
var (
	ErrShelterDetached = errors.New("shelter is detached")
	ErrAlreadyAttached = errors.New("shelter is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
