package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

var validTableNamesStr = strings.Join(types.StandardTableNames, ", ")

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <table> <file.csv>",
		Short: "Bulk load a CSV file into a table",
		Long: "Load every record of a CSV file into one table. The header row names the\n" +
			"columns; empty fields are stored as NULL. Rows of the credential table may\n" +
			"carry a plain password column, which is hashed on the way in.\n\n" +
			"Tables: " + validTableNamesStr,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, path := args[0], args[1]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				n, err := b.BulkLoad(ctx, table, f)
				if err != nil {
					return fmt.Errorf("load %s: %w", table, err)
				}
				return render(cmd, map[string]any{"table": table, "rows": n}, func(w io.Writer) {
					okColor.Fprintf(w, "Loaded %d rows into %s\n", n, table)
				})
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table as JSON Lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				counts, err := b.Export(ctx, dir)
				if err != nil {
					return err
				}
				return render(cmd, counts, func(w io.Writer) {
					names := make([]string, 0, len(counts))
					for name := range counts {
						names = append(names, name)
					}
					sort.Strings(names)
					for _, name := range names {
						fmt.Fprintf(w, "%-12s %d\n", name, counts[name])
					}
					okColor.Fprintf(w, "Exported to %s\n", dir)
				})
			})
		},
	}
}
