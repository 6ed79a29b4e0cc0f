package types

import "time"

// Vaccine is a catalog entry.
type Vaccine struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Vaccination is an append-only dose record; repeats are allowed.
type Vaccination struct {
	ID        int64 `json:"id"`
	AnimalID  int64 `json:"animal_id"`
	VaccineID int64 `json:"vaccine_id"`
}

// Adoption is terminal: an animal appears in at most one adoption ever.
type Adoption struct {
	ID       int64     `json:"id"`
	AnimalID int64     `json:"animal_id"`
	PersonID int64     `json:"person_id"`
	Date     time.Time `json:"date"`
}
