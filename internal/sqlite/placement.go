// This file implements the placement workflows: intake, adoption, and
// vaccination, plus the plain record inserts for people and vaccines.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// Intake admits the animal to a room of its department and records it.
// The admission, the animal row, and the housing row commit together or not
// at all; on ErrNoCapacity nothing is written.
func (b *Backend) Intake(ctx context.Context, animal types.Animal) (*types.Animal, error) {
	out, err := b.intake(ctx, animal)
	b.metrics.intake.WithLabelValues(resultLabel(err)).Inc()
	return out, err
}

func (b *Backend) intake(ctx context.Context, animal types.Animal) (*types.Animal, error) {
	animal.Name = strings.TrimSpace(animal.Name)
	if animal.IntakeDate.IsZero() {
		animal.IntakeDate = today()
	}
	if err := animal.Validate(); err != nil {
		return nil, err
	}

	err := b.withTx(ctx, "intake", func(tx *sql.Tx) error {
		roomID, err := tryAdmit(ctx, tx, animal.Department)
		if err != nil {
			return err
		}

		id, err := b.tables[types.AnimalTable].Insert(ctx, tx,
			[]string{"name", "department", "sex", "birth_date", "intake_date", "notes"},
			[]any{animal.Name, string(animal.Department), string(animal.Sex),
				formatDate(animal.BirthDate), formatDate(animal.IntakeDate), nullString(animal.Notes)})
		if err != nil {
			return storageErr("inserting animal", err)
		}

		if _, err := b.tables[types.HousingTable].Insert(ctx, tx,
			[]string{"animal_id", "room_id"},
			[]any{id, roomID}); err != nil {
			return storageErr("inserting housing", err)
		}

		animal.ID = id
		animal.RoomID = roomID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &animal, nil
}

// Adopt records that personID adopted animalID on date and frees the
// animal's room. The existence checks, the housing delete, the release, and
// the adoption row share one transaction; housing goes first because an
// adoption row may not coexist with a housing row. The UNIQUE constraint on
// adoption.animal_id backs the not-yet-adopted check.
func (b *Backend) Adopt(ctx context.Context, animalID, personID int64, date time.Time) (*types.Adoption, error) {
	out, err := b.adopt(ctx, animalID, personID, date)
	b.metrics.adoption.WithLabelValues(resultLabel(err)).Inc()
	return out, err
}

func (b *Backend) adopt(ctx context.Context, animalID, personID int64, date time.Time) (*types.Adoption, error) {
	if date.IsZero() {
		date = today()
	}

	var adoption *types.Adoption
	err := b.withTx(ctx, "adopt", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "SELECT 1 FROM animal WHERE id = ?", animalID, types.ErrAnimalNotFound); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, "SELECT 1 FROM person WHERE id = ?", personID, types.ErrPersonNotFound); err != nil {
			return err
		}
		adopted, err := rowExists(ctx, tx, "SELECT 1 FROM adoption WHERE animal_id = ?", animalID)
		if err != nil {
			return err
		}
		if adopted {
			return types.ErrAlreadyAdopted
		}

		var roomID int64
		err = tx.QueryRowContext(ctx, "SELECT room_id FROM housing WHERE animal_id = ?", animalID).Scan(&roomID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Never housed, nothing to release.
		case err != nil:
			return storageErr("reading housing", err)
		default:
			if _, err := tx.ExecContext(ctx, "DELETE FROM housing WHERE animal_id = ?", animalID); err != nil {
				return storageErr("deleting housing", err)
			}
			if err := release(ctx, tx, roomID); err != nil {
				return err
			}
		}

		id, err := b.tables[types.AdoptionTable].Insert(ctx, tx,
			[]string{"animal_id", "person_id", "date"},
			[]any{animalID, personID, formatDate(date)})
		if isUniqueViolation(err) {
			return types.ErrAlreadyAdopted
		}
		if err != nil {
			return storageErr("inserting adoption", err)
		}

		adoption = &types.Adoption{ID: id, AnimalID: animalID, PersonID: personID, Date: date}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adoption, nil
}

// Vaccinate appends a vaccination record. Repeat doses are allowed.
func (b *Backend) Vaccinate(ctx context.Context, animalID, vaccineID int64) (*types.Vaccination, error) {
	out, err := b.vaccinate(ctx, animalID, vaccineID)
	b.metrics.vaccination.WithLabelValues(resultLabel(err)).Inc()
	return out, err
}

func (b *Backend) vaccinate(ctx context.Context, animalID, vaccineID int64) (*types.Vaccination, error) {
	var v *types.Vaccination
	err := b.withTx(ctx, "vaccinate", func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "SELECT 1 FROM animal WHERE id = ?", animalID, types.ErrAnimalNotFound); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, "SELECT 1 FROM vaccine WHERE id = ?", vaccineID, types.ErrVaccineNotFound); err != nil {
			return err
		}
		id, err := b.tables[types.VaccinationTable].Insert(ctx, tx,
			[]string{"animal_id", "vaccine_id"},
			[]any{animalID, vaccineID})
		if err != nil {
			return storageErr("inserting vaccination", err)
		}
		v = &types.Vaccination{ID: id, AnimalID: animalID, VaccineID: vaccineID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AddPerson records a new person.
func (b *Backend) AddPerson(ctx context.Context, p types.Person) (*types.Person, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := b.withTx(ctx, "add_person", func(tx *sql.Tx) error {
		id, err := b.tables[types.PersonTable].Insert(ctx, tx,
			[]string{"first_name", "last_name", "email"},
			[]any{p.FirstName, p.LastName, nullString(p.Email)})
		if err != nil {
			return storageErr("inserting person", err)
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddVaccine adds a catalog entry. Names are unique.
func (b *Backend) AddVaccine(ctx context.Context, name string) (*types.Vaccine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidData
	}

	var v *types.Vaccine
	err := b.withTx(ctx, "add_vaccine", func(tx *sql.Tx) error {
		id, err := b.tables[types.VaccineTable].Insert(ctx, tx, []string{"name"}, []any{name})
		if isUniqueViolation(err) {
			return types.ErrDuplicateName
		}
		if err != nil {
			return storageErr("inserting vaccine", err)
		}
		v = &types.Vaccine{ID: id, Name: name}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func rowExists(ctx context.Context, q querier, query string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("lookup", err)
	}
	return true, nil
}

// requireRow returns notFound when query matches no row.
func requireRow(ctx context.Context, q querier, query string, id int64, notFound error) error {
	ok, err := rowExists(ctx, q, query, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// formatDate stores dates as TEXT; the zero time is NULL.
func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(types.DateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
