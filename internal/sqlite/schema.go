// Package sqlite implements the SQLite storage backend for the shelter
// records core.
package sqlite

import (
	"context"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

// Schema DDL for all tables. Each entry is executed in order by Table.Create.
const (
	createCredential = `CREATE TABLE credential (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    handle TEXT NOT NULL UNIQUE,
    hash TEXT NOT NULL,
    salt TEXT NOT NULL
);`

	createVaccine = `CREATE TABLE vaccine (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);`

	createRoom = `CREATE TABLE room (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    department TEXT NOT NULL CHECK (department IN ('M', 'P')),
    capacity INTEGER NOT NULL CHECK (capacity >= 0),
    occupancy INTEGER NOT NULL DEFAULT 0,
    CHECK (occupancy >= 0 AND occupancy <= capacity)
);`

	createRoomIndex = `CREATE INDEX idx_room_department ON room (department, id);`

	createAnimal = `CREATE TABLE animal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    department TEXT NOT NULL CHECK (department IN ('M', 'P')),
    sex TEXT NOT NULL CHECK (sex IN ('M', 'F')),
    birth_date TEXT,
    intake_date TEXT,
    notes TEXT
);`

	createAnimalIndex = `CREATE INDEX idx_animal_department_birth ON animal (department, birth_date);`

	createPerson = `CREATE TABLE person (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT
);`

	createHousing = `CREATE TABLE housing (
    animal_id INTEGER PRIMARY KEY REFERENCES animal(id),
    room_id INTEGER NOT NULL REFERENCES room(id)
);`

	createHousingIndex = `CREATE INDEX idx_housing_room ON housing (room_id);`

	createVaccination = `CREATE TABLE vaccination (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    animal_id INTEGER NOT NULL REFERENCES animal(id),
    vaccine_id INTEGER NOT NULL REFERENCES vaccine(id)
);`

	createAdoption = `CREATE TABLE adoption (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    animal_id INTEGER NOT NULL UNIQUE REFERENCES animal(id),
    person_id INTEGER NOT NULL REFERENCES person(id),
    date TEXT NOT NULL
);`
)

// guard is a trigger whose condition reads tables other than the one it
// fires on. It exists only while every table it mentions exists: Create
// installs it once the last of them appears, and Drop of any of them
// removes it.
type guard struct {
	name   string
	tables []string
	ddl    string
}

var guards = []guard{
	{
		name:   "animal_department_locked",
		tables: []string{types.AnimalTable, types.HousingTable},
		ddl: `CREATE TRIGGER IF NOT EXISTS animal_department_locked
BEFORE UPDATE OF department ON animal
WHEN NEW.department IS NOT OLD.department
    AND EXISTS (SELECT 1 FROM housing WHERE animal_id = OLD.id)
BEGIN
    SELECT RAISE(ABORT, 'department is immutable while housed');
END;`,
	},
	{
		name:   "housing_department_match",
		tables: []string{types.HousingTable, types.RoomTable, types.AnimalTable},
		ddl: `CREATE TRIGGER IF NOT EXISTS housing_department_match
BEFORE INSERT ON housing
WHEN (SELECT department FROM room WHERE id = NEW.room_id)
    IS NOT (SELECT department FROM animal WHERE id = NEW.animal_id)
BEGIN
    SELECT RAISE(ABORT, 'room department does not match animal');
END;`,
	},
	{
		// Every housing row is backed by one unit of room occupancy, so a
		// row can only be added after the ledger admitted it.
		name:   "housing_within_occupancy",
		tables: []string{types.HousingTable, types.RoomTable},
		ddl: `CREATE TRIGGER IF NOT EXISTS housing_within_occupancy
BEFORE INSERT ON housing
WHEN (SELECT COUNT(*) FROM housing WHERE room_id = NEW.room_id)
    >= (SELECT occupancy FROM room WHERE id = NEW.room_id)
BEGIN
    SELECT RAISE(ABORT, 'room occupancy does not cover housing');
END;`,
	},
	{
		name:   "housing_not_adopted",
		tables: []string{types.HousingTable, types.AdoptionTable},
		ddl: `CREATE TRIGGER IF NOT EXISTS housing_not_adopted
BEFORE INSERT ON housing
WHEN EXISTS (SELECT 1 FROM adoption WHERE animal_id = NEW.animal_id)
BEGIN
    SELECT RAISE(ABORT, 'animal is adopted');
END;`,
	},
	{
		name:   "adoption_not_housed",
		tables: []string{types.AdoptionTable, types.HousingTable},
		ddl: `CREATE TRIGGER IF NOT EXISTS adoption_not_housed
BEFORE INSERT ON adoption
WHEN EXISTS (SELECT 1 FROM housing WHERE animal_id = NEW.animal_id)
BEGIN
    SELECT RAISE(ABORT, 'animal is still housed');
END;`,
	},
}

func (g guard) mentions(table string) bool {
	return slices.Contains(g.tables, table)
}

// createGuards installs every guard mentioning table whose tables all exist.
func createGuards(ctx context.Context, q querier, table string) error {
	for _, g := range guards {
		if !g.mentions(table) {
			continue
		}
		ready := true
		for _, name := range g.tables {
			ok, err := tableExists(ctx, q, name)
			if err != nil {
				return fmt.Errorf("creating trigger %s: %w", g.name, err)
			}
			if !ok {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if _, err := q.ExecContext(ctx, g.ddl); err != nil {
			return fmt.Errorf("creating trigger %s: %w", g.name, err)
		}
	}
	return nil
}

// dropGuards removes every guard mentioning table.
func dropGuards(ctx context.Context, q querier, table string) error {
	for _, g := range guards {
		if !g.mentions(table) {
			continue
		}
		if _, err := q.ExecContext(ctx, "DROP TRIGGER IF EXISTS "+g.name); err != nil {
			return fmt.Errorf("dropping trigger %s: %w", g.name, err)
		}
	}
	return nil
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return n > 0, err
}
