package sqlite

import (
	"github.com/mesh-intelligence/shelter/internal/password"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

// newTables declares every entity table. Only the credential table has a
// non-trivial insertion hook.
func newTables(hasher *password.Hasher) map[string]*Table {
	tables := []*Table{
		newTable(types.CredentialTable,
			[]string{"id", "handle", "hash", "salt"},
			credentialHook{hasher: hasher},
			createCredential),
		newTable(types.VaccineTable,
			[]string{"id", "name"},
			nil,
			createVaccine),
		newTable(types.RoomTable,
			[]string{"id", "department", "capacity", "occupancy"},
			nil,
			createRoom, createRoomIndex),
		newTable(types.AnimalTable,
			[]string{"id", "name", "department", "sex", "birth_date", "intake_date", "notes"},
			nil,
			createAnimal, createAnimalIndex),
		newTable(types.PersonTable,
			[]string{"id", "first_name", "last_name", "email"},
			nil,
			createPerson),
		newTable(types.HousingTable,
			[]string{"animal_id", "room_id"},
			nil,
			createHousing, createHousingIndex),
		newTable(types.VaccinationTable,
			[]string{"id", "animal_id", "vaccine_id"},
			nil,
			createVaccination),
		newTable(types.AdoptionTable,
			[]string{"id", "animal_id", "person_id", "date"},
			nil,
			createAdoption),
	}

	m := make(map[string]*Table, len(tables))
	for _, t := range tables {
		m[t.name] = t
	}
	return m
}
