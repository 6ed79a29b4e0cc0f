package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newAnimalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "animal",
		Short: "Look up animals",
	}
	cmd.AddCommand(newAnimalShowCmd(), newAnimalSearchCmd(), newAnimalYoungestCmd())
	return cmd
}

func newAnimalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <animal-id>",
		Short: "Show an animal with its vaccinations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("animal", args[0])
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				a, err := b.GetAnimal(ctx, id)
				if err != nil {
					return err
				}
				vaccinations, err := b.ListVaccinations(ctx, id)
				if err != nil {
					return err
				}
				out := struct {
					*types.Animal
					Vaccinations []types.Vaccination `json:"vaccinations"`
				}{a, vaccinations}
				return render(cmd, out, func(w io.Writer) {
					printAnimal(w, *a)
					for _, v := range vaccinations {
						fmt.Fprintf(w, "  vaccination %d: vaccine %d\n", v.ID, v.VaccineID)
					}
				})
			})
		},
	}
}

func newAnimalSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find animals whose name contains term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				animals, err := b.SearchAnimals(ctx, args[0])
				if err != nil {
					return err
				}
				return renderAnimals(cmd, animals)
			})
		},
	}
}

func newAnimalYoungestCmd() *cobra.Command {
	var (
		department string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "youngest",
		Short: "List the youngest animals of a department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				animals, err := b.YoungestAnimals(ctx, types.Department(department), limit)
				if err != nil {
					return fmt.Errorf("department %q: %w", department, err)
				}
				return renderAnimals(cmd, animals)
			})
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "department: M (cats) or P (dogs)")
	cmd.Flags().IntVar(&limit, "limit", sqlite.DefaultYoungestLimit, "maximum number of animals")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}

func renderAnimals(cmd *cobra.Command, animals []types.Animal) error {
	if animals == nil {
		animals = []types.Animal{}
	}
	return render(cmd, animals, func(w io.Writer) {
		if len(animals) == 0 {
			fmt.Fprintln(w, "No animals found")
			return
		}
		for _, a := range animals {
			printAnimalLine(w, a)
		}
	})
}
