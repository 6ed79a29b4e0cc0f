package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/paths"
	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newInitCmd() *cobra.Command {
	var (
		reset        bool
		referenceDir string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize shelter storage",
		Long: "Create the configuration and data directories and the database schema.\n" +
			"An empty database is seeded from the reference directory. With --reset\n" +
			"every table is dropped and rebuilt from the reference directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return systemError(fmt.Errorf("resolve config dir: %w", err))
			}
			dataDir, err := paths.ResolveDataDir(flags.dataDir, "")
			if err != nil {
				return systemError(fmt.Errorf("resolve data dir: %w", err))
			}
			if referenceDir != "" {
				if referenceDir, err = filepath.Abs(referenceDir); err != nil {
					return systemError(err)
				}
			}
			// First run records the chosen directories; later runs keep the file.
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return systemError(fmt.Errorf("create config directory: %w", err))
			}
			if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), dataDir, referenceDir); err != nil {
				return systemError(fmt.Errorf("write config: %w", err))
			}

			var seedDir, usedDir string
			b, err := openShelter(cmd, func(cfg *types.Config) {
				if referenceDir != "" {
					cfg.ReferenceDir = referenceDir
				}
				seedDir = cfg.ReferenceDir
				usedDir = cfg.DataDir
			})
			if err != nil {
				return err
			}
			defer b.Detach()

			if reset {
				if err := b.Setup(cmd.Context(), seedDir); err != nil {
					return err
				}
			}
			return render(cmd, map[string]any{"data_dir": usedDir, "reset": reset}, func(w io.Writer) {
				okColor.Fprintf(w, "Shelter initialized in %s\n", usedDir)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables and reload reference data")
	cmd.Flags().StringVar(&referenceDir, "reference-dir", "", "directory of reference CSV files")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every record and keep the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				if err := b.ClearAll(ctx); err != nil {
					return err
				}
				return render(cmd, map[string]bool{"cleared": true}, func(w io.Writer) {
					okColor.Fprintln(w, "All records cleared")
				})
			})
		},
	}
}
