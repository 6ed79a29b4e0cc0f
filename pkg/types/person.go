package types

import "strings"

// Person is a prospective or actual adopter. Names are not unique.
type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// Validate requires both names.
func (p Person) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return ErrInvalidData
	}
	return nil
}
