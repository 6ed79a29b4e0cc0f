package types

import (
	"strings"
	"time"
)

// DateLayout is the storage and CLI format for calendar dates.
const DateLayout = "2006-01-02"

// Department separates housing pools. Rooms of one department never hold
// animals of another.
type Department string

// Departments.
const (
	DepartmentCats Department = "M"
	DepartmentDogs Department = "P"
)

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	return d == DepartmentCats || d == DepartmentDogs
}

// Sex tags.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Valid reports whether s is a known sex tag.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Animal is a shelter resident. RoomID is zero while the animal is not
// housed, which in committed state means it has been adopted or was loaded
// without a housing record.
type Animal struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Department Department `json:"department"`
	Sex        Sex        `json:"sex"`
	BirthDate  time.Time  `json:"birth_date,omitzero"`
	IntakeDate time.Time  `json:"intake_date,omitzero"`
	Notes      string     `json:"notes,omitempty"`
	RoomID     int64      `json:"room_id,omitempty"`
}

// Validate checks the attributes required for intake.
func (a Animal) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidData
	}
	if !a.Department.Valid() || !a.Sex.Valid() {
		return ErrInvalidData
	}
	if !a.BirthDate.IsZero() && !a.IntakeDate.IsZero() && a.BirthDate.After(a.IntakeDate) {
		return ErrInvalidData
	}
	return nil
}
