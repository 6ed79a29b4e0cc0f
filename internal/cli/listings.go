package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newRoomCmd() *cobra.Command {
	var department string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rooms with capacity and occupancy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				rooms, err := b.ListRooms(ctx, types.Department(department))
				if err != nil {
					return err
				}
				if rooms == nil {
					rooms = []types.Room{}
				}
				return render(cmd, rooms, func(w io.Writer) {
					for _, r := range rooms {
						c := okColor
						if r.Free() == 0 {
							c = warnColor
						}
						fmt.Fprintf(w, "%-6d %-2s %s\n", r.ID, r.Department,
							c.Sprintf("%d/%d", r.Occupancy, r.Capacity))
					}
				})
			})
		},
	}
	list.Flags().StringVar(&department, "department", "", "only rooms of this department")

	cmd := &cobra.Command{
		Use:   "room",
		Short: "Inspect rooms",
	}
	cmd.AddCommand(list)
	return cmd
}

func newHousingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "housing",
		Short: "Inspect housing assignments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List animals and their rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				housing, err := b.ListHousing(ctx)
				if err != nil {
					return err
				}
				if housing == nil {
					housing = []types.HousingAssignment{}
				}
				return render(cmd, housing, func(w io.Writer) {
					for _, h := range housing {
						fmt.Fprintf(w, "animal %-6d room %d\n", h.AnimalID, h.RoomID)
					}
				})
			})
		},
	})
	return cmd
}

func newAdoptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adoption",
		Short: "Inspect adoptions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List adoptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				adoptions, err := b.ListAdoptions(ctx)
				if err != nil {
					return err
				}
				if adoptions == nil {
					adoptions = []types.Adoption{}
				}
				return render(cmd, adoptions, func(w io.Writer) {
					for _, a := range adoptions {
						fmt.Fprintf(w, "animal %-6d person %-6d %s\n",
							a.AnimalID, a.PersonID, a.Date.Format(types.DateLayout))
					}
				})
			})
		},
	})
	return cmd
}
