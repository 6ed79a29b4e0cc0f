package types

import "errors"

// Record errors. Every operation of the shelter core reports one of these,
// possibly wrapped, so callers can match with errors.Is.
var (
	ErrNoCapacity         = errors.New("no room with spare capacity")
	ErrAnimalNotFound     = errors.New("animal not found")
	ErrPersonNotFound     = errors.New("person not found")
	ErrVaccineNotFound    = errors.New("vaccine not found")
	ErrAlreadyAdopted     = errors.New("animal already adopted")
	ErrDuplicateHandle    = errors.New("handle already exists")
	ErrDuplicateName      = errors.New("name already exists")
	ErrInvalidCredential  = errors.New("invalid credentials")
	ErrInvalidData        = errors.New("invalid entity data")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrOccupancyUnderflow = errors.New("occupancy would drop below zero")
	ErrStorageFailure     = errors.New("storage failure")
)
