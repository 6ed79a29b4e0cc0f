package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

var errAuditFailed = errors.New("audit found violations")

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check room occupancy against housing and adoptions",
		Long:  "Recount room occupancy from housing and report drift, over-capacity rooms,\nadopted animals still housed, and animals housed outside their department.\nExits non-zero when any violation is found.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				violations, err := b.AuditOccupancy(ctx)
				if err != nil {
					return err
				}
				if violations == nil {
					violations = []types.Violation{}
				}
				if err := render(cmd, violations, func(w io.Writer) {
					if len(violations) == 0 {
						okColor.Fprintln(w, "No violations")
						return
					}
					for _, v := range violations {
						printViolation(w, v)
					}
				}); err != nil {
					return err
				}
				if len(violations) > 0 {
					return fmt.Errorf("%w: %d", errAuditFailed, len(violations))
				}
				return nil
			})
		},
	}
}
