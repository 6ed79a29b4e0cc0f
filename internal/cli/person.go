package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newPersonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage adopters",
	}
	cmd.AddCommand(newPersonAddCmd(), newPersonSearchCmd(), newPersonShowCmd())
	return cmd
}

func newPersonAddCmd() *cobra.Command {
	var p types.Person
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				added, err := b.AddPerson(ctx, p)
				if err != nil {
					return fmt.Errorf("add person: %w", err)
				}
				return render(cmd, added, func(w io.Writer) {
					okColor.Fprintf(w, "Added person %d\n", added.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&p.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&p.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	return cmd
}

func newPersonSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find persons whose name contains term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				persons, err := b.SearchPersons(ctx, args[0])
				if err != nil {
					return err
				}
				if persons == nil {
					persons = []types.Person{}
				}
				return render(cmd, persons, func(w io.Writer) {
					if len(persons) == 0 {
						fmt.Fprintln(w, "No persons found")
					}
					for _, p := range persons {
						printPersonLine(w, p)
					}
				})
			})
		},
	}
}

func newPersonShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <person-id>",
		Short: "Show a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("person", args[0])
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				p, err := b.GetPerson(ctx, id)
				if err != nil {
					return err
				}
				return render(cmd, p, func(w io.Writer) { printPersonLine(w, *p) })
			})
		},
	}
}
