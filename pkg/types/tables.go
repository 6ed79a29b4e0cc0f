package types

// Table names, in the order reference data must be loaded. Tables with
// foreign keys come after the tables they reference.
const (
	CredentialTable  = "credential"
	VaccineTable     = "vaccine"
	RoomTable        = "room"
	AnimalTable      = "animal"
	PersonTable      = "person"
	HousingTable     = "housing"
	VaccinationTable = "vaccination"
	AdoptionTable    = "adoption"
)

// StandardTableNames lists all table names in load order.
var StandardTableNames = []string{
	CredentialTable,
	VaccineTable,
	RoomTable,
	AnimalTable,
	PersonTable,
	HousingTable,
	VaccinationTable,
	AdoptionTable,
}
