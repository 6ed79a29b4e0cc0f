package types

import "fmt"

// Severity grades an audit finding.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Violation is a single consistency finding from an occupancy audit.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Entity   string   `json:"entity"`
	EntityID int64    `json:"entity_id"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Rule, v.Message)
}
