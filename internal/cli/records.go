package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newIntakeCmd() *cobra.Command {
	var (
		animal     types.Animal
		department string
		sex        string
		birth      string
		intake     string
	)
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Admit an animal into a room of its department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			animal.Department = types.Department(department)
			animal.Sex = types.Sex(sex)
			if animal.BirthDate, err = parseDateFlag("birth", birth); err != nil {
				return err
			}
			if animal.IntakeDate, err = parseDateFlag("date", intake); err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				a, err := b.Intake(ctx, animal)
				if err != nil {
					return fmt.Errorf("intake %s: %w", animal.Name, err)
				}
				return render(cmd, a, func(w io.Writer) {
					okColor.Fprintf(w, "Admitted %s to room %d\n", a.Name, a.RoomID)
					printAnimal(w, *a)
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&animal.Name, "name", "", "animal name")
	f.StringVar(&department, "department", "", "department: M (cats) or P (dogs)")
	f.StringVar(&sex, "sex", "", "sex: M or F")
	f.StringVar(&birth, "birth", "", "birth date (YYYY-MM-DD)")
	f.StringVar(&intake, "date", "", "intake date (YYYY-MM-DD, default today)")
	f.StringVar(&animal.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("sex")
	return cmd
}

func newAdoptCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "adopt <animal-id> <person-id>",
		Short: "Record an adoption and free the animal's room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			animalID, err := parseID("animal", args[0])
			if err != nil {
				return err
			}
			personID, err := parseID("person", args[1])
			if err != nil {
				return err
			}
			when, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				a, err := b.Adopt(ctx, animalID, personID, when)
				if err != nil {
					return fmt.Errorf("adopt animal %d: %w", animalID, err)
				}
				return render(cmd, a, func(w io.Writer) {
					okColor.Fprintf(w, "Animal %d adopted by person %d on %s\n",
						a.AnimalID, a.PersonID, a.Date.Format(types.DateLayout))
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "adoption date (YYYY-MM-DD, default today)")
	return cmd
}

func newVaccinateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vaccinate <animal-id> <vaccine-id>",
		Short: "Record a vaccination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			animalID, err := parseID("animal", args[0])
			if err != nil {
				return err
			}
			vaccineID, err := parseID("vaccine", args[1])
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				v, err := b.Vaccinate(ctx, animalID, vaccineID)
				if err != nil {
					return fmt.Errorf("vaccinate animal %d: %w", animalID, err)
				}
				return render(cmd, v, func(w io.Writer) {
					okColor.Fprintf(w, "Vaccination %d recorded for animal %d\n", v.ID, v.AnimalID)
				})
			})
		},
	}
}
