package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	blockColor = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.Bold)
)

// render writes v as indented JSON when --json is set, otherwise calls text.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if flags.jsonMode {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	text(w)
	return nil
}

func printAnimal(w io.Writer, a types.Animal) {
	room := "-"
	if a.RoomID != 0 {
		room = strconv.FormatInt(a.RoomID, 10)
	}
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprintf("#%d", a.ID), a.Name)
	fmt.Fprintf(w, "  department: %s  sex: %s  room: %s\n", a.Department, a.Sex, room)
	fmt.Fprintf(w, "  born: %s  intake: %s\n", dateOrDash(a.BirthDate), dateOrDash(a.IntakeDate))
	if a.Notes != "" {
		fmt.Fprintf(w, "  notes: %s\n", a.Notes)
	}
}

func printAnimalLine(w io.Writer, a types.Animal) {
	fmt.Fprintf(w, "%-6d %-20s %-2s %-2s %s\n", a.ID, a.Name, a.Department, a.Sex, dateOrDash(a.BirthDate))
}

func printPersonLine(w io.Writer, p types.Person) {
	fmt.Fprintf(w, "%-6d %s %s", p.ID, p.FirstName, p.LastName)
	if p.Email != "" {
		fmt.Fprintf(w, " <%s>", p.Email)
	}
	fmt.Fprintln(w)
}

func printViolation(w io.Writer, v types.Violation) {
	c := warnColor
	if v.Severity == types.SeverityBlock {
		c = blockColor
	}
	fmt.Fprintf(w, "%s %s: %s\n", c.Sprintf("[%s]", v.Severity), v.Rule, v.Message)
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(types.DateLayout)
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(types.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected %s: %w", name, types.DateLayout, types.ErrInvalidData)
	}
	return t, nil
}

// parseID parses a positional record id.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: %w", what, arg, types.ErrInvalidData)
	}
	return id, nil
}
