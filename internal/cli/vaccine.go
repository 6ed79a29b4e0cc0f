package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newVaccineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaccine",
		Short: "Manage the vaccine catalog",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a vaccine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
					v, err := b.AddVaccine(ctx, args[0])
					if err != nil {
						return fmt.Errorf("add vaccine %q: %w", args[0], err)
					}
					return render(cmd, v, func(w io.Writer) {
						okColor.Fprintf(w, "Added vaccine %d %s\n", v.ID, v.Name)
					})
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List vaccines",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
					vaccines, err := b.ListVaccines(ctx)
					if err != nil {
						return err
					}
					if vaccines == nil {
						vaccines = []types.Vaccine{}
					}
					return render(cmd, vaccines, func(w io.Writer) {
						for _, v := range vaccines {
							fmt.Fprintf(w, "%-6d %s\n", v.ID, v.Name)
						}
					})
				})
			},
		},
	)
	return cmd
}
