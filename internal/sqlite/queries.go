// This file implements the read side: lookups, searches, and listings.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// DefaultYoungestLimit is the number of animals YoungestAnimals returns when
// limit is not positive.
const DefaultYoungestLimit = 10

const animalColumns = `a.id, a.name, a.department, a.sex, a.birth_date, a.intake_date, a.notes, h.room_id`

const animalFrom = ` FROM animal a LEFT JOIN housing h ON h.animal_id = a.id`

// query runs fn against the attached pool under the read lock.
func (b *Backend) query(fn func(db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrShelterDetached
	}
	return fn(b.db)
}

// GetAnimal returns the animal with its current room, if any.
func (b *Backend) GetAnimal(ctx context.Context, id int64) (*types.Animal, error) {
	var a *types.Animal
	err := b.query(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT "+animalColumns+animalFrom+" WHERE a.id = ?", id)
		var err error
		a, err = scanAnimal(row)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrAnimalNotFound
		}
		return err
	})
	return a, err
}

// SearchAnimals returns animals whose name contains term, ignoring case.
func (b *Backend) SearchAnimals(ctx context.Context, term string) ([]types.Animal, error) {
	return b.listAnimals(ctx,
		"SELECT "+animalColumns+animalFrom+" WHERE a.name LIKE ? ESCAPE '\\' ORDER BY a.name, a.id",
		likePattern(term))
}

// YoungestAnimals returns up to limit animals of department, newest birth
// date first. Animals without a birth date come last.
func (b *Backend) YoungestAnimals(ctx context.Context, department types.Department, limit int) ([]types.Animal, error) {
	if !department.Valid() {
		return nil, types.ErrInvalidData
	}
	if limit <= 0 {
		limit = DefaultYoungestLimit
	}
	return b.listAnimals(ctx,
		"SELECT "+animalColumns+animalFrom+
			" WHERE a.department = ? ORDER BY a.birth_date IS NULL, a.birth_date DESC, a.id LIMIT ?",
		string(department), limit)
}

func (b *Backend) listAnimals(ctx context.Context, query string, args ...any) ([]types.Animal, error) {
	var out []types.Animal
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return storageErr("listing animals", err)
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAnimal(rows)
			if err != nil {
				return err
			}
			out = append(out, *a)
		}
		if err := rows.Err(); err != nil {
			return storageErr("listing animals", err)
		}
		return nil
	})
	return out, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnimal(s scanner) (*types.Animal, error) {
	var (
		a             types.Animal
		dept, sex     string
		birth, intake sql.NullString
		notes         sql.NullString
		room          sql.NullInt64
	)
	if err := s.Scan(&a.ID, &a.Name, &dept, &sex, &birth, &intake, &notes, &room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageErr("reading animal", err)
	}
	a.Department = types.Department(dept)
	a.Sex = types.Sex(sex)
	a.Notes = notes.String
	a.RoomID = room.Int64

	var err error
	if a.BirthDate, err = parseDate(birth); err != nil {
		return nil, err
	}
	if a.IntakeDate, err = parseDate(intake); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetPerson returns one person.
func (b *Backend) GetPerson(ctx context.Context, id int64) (*types.Person, error) {
	var p types.Person
	err := b.query(func(db *sql.DB) error {
		var email sql.NullString
		err := db.QueryRowContext(ctx,
			"SELECT id, first_name, last_name, email FROM person WHERE id = ?", id).
			Scan(&p.ID, &p.FirstName, &p.LastName, &email)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrPersonNotFound
		}
		if err != nil {
			return storageErr("reading person", err)
		}
		p.Email = email.String
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPersons returns people whose first or last name contains term.
func (b *Backend) SearchPersons(ctx context.Context, term string) ([]types.Person, error) {
	var out []types.Person
	pattern := likePattern(term)
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT id, first_name, last_name, email FROM person
WHERE first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\'
ORDER BY last_name, first_name, id`, pattern, pattern)
		if err != nil {
			return storageErr("listing persons", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p types.Person
			var email sql.NullString
			if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &email); err != nil {
				return storageErr("reading person", err)
			}
			p.Email = email.String
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// ListRooms returns rooms ordered by id, restricted to department when it
// is not empty.
func (b *Backend) ListRooms(ctx context.Context, department types.Department) ([]types.Room, error) {
	query := "SELECT id, department, capacity, occupancy FROM room"
	var args []any
	if department != "" {
		query += " WHERE department = ?"
		args = append(args, string(department))
	}
	query += " ORDER BY id"

	var out []types.Room
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return storageErr("listing rooms", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r types.Room
			var dept string
			if err := rows.Scan(&r.ID, &dept, &r.Capacity, &r.Occupancy); err != nil {
				return storageErr("reading room", err)
			}
			r.Department = types.Department(dept)
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// ListHousing returns every current housing assignment.
func (b *Backend) ListHousing(ctx context.Context) ([]types.HousingAssignment, error) {
	var out []types.HousingAssignment
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT animal_id, room_id FROM housing ORDER BY room_id, animal_id")
		if err != nil {
			return storageErr("listing housing", err)
		}
		defer rows.Close()
		for rows.Next() {
			var h types.HousingAssignment
			if err := rows.Scan(&h.AnimalID, &h.RoomID); err != nil {
				return storageErr("reading housing", err)
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	return out, err
}

// ListVaccinations returns vaccinations in insertion order, for one animal
// when animalID is positive.
func (b *Backend) ListVaccinations(ctx context.Context, animalID int64) ([]types.Vaccination, error) {
	query := "SELECT id, animal_id, vaccine_id FROM vaccination"
	var args []any
	if animalID > 0 {
		query += " WHERE animal_id = ?"
		args = append(args, animalID)
	}
	query += " ORDER BY id"

	var out []types.Vaccination
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return storageErr("listing vaccinations", err)
		}
		defer rows.Close()
		for rows.Next() {
			var v types.Vaccination
			if err := rows.Scan(&v.ID, &v.AnimalID, &v.VaccineID); err != nil {
				return storageErr("reading vaccination", err)
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

// ListAdoptions returns all adoptions in insertion order.
func (b *Backend) ListAdoptions(ctx context.Context) ([]types.Adoption, error) {
	var out []types.Adoption
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT id, animal_id, person_id, date FROM adoption ORDER BY id")
		if err != nil {
			return storageErr("listing adoptions", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a types.Adoption
			var date sql.NullString
			if err := rows.Scan(&a.ID, &a.AnimalID, &a.PersonID, &date); err != nil {
				return storageErr("reading adoption", err)
			}
			if a.Date, err = parseDate(date); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

// ListVaccines returns the vaccine catalog ordered by name.
func (b *Backend) ListVaccines(ctx context.Context) ([]types.Vaccine, error) {
	var out []types.Vaccine
	err := b.query(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT id, name FROM vaccine ORDER BY name")
		if err != nil {
			return storageErr("listing vaccines", err)
		}
		defer rows.Close()
		for rows.Next() {
			var v types.Vaccine
			if err := rows.Scan(&v.ID, &v.Name); err != nil {
				return storageErr("reading vaccine", err)
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

// likePattern escapes LIKE wildcards in term and wraps it for a substring
// match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(types.DateLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q: %w", types.ErrInvalidData, s.String, err)
	}
	return t, nil
}
