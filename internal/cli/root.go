// Package cli implements the shelter command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/paths"
	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errSystem marks failures that are not the user's input: configuration,
// filesystem, and storage.
var errSystem = errors.New("system error")

func systemError(err error) error {
	return fmt.Errorf("%w: %w", errSystem, err)
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "shelter" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}

	root := &cobra.Command{
		Use:   "shelter",
		Short: "Records for an animal shelter",
		Long:  "Shelter tracks intake, housing, vaccination, and adoption of shelter animals\nagainst per-department room capacity.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (env "+paths.EnvDataDir+")")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newClearCmd(),
		newLoadCmd(),
		newExportCmd(),
		newIntakeCmd(),
		newAdoptCmd(),
		newVaccinateCmd(),
		newAnimalCmd(),
		newPersonCmd(),
		newVaccineCmd(),
		newUserCmd(),
		newRoomCmd(),
		newHousingCmd(),
		newAdoptionCmd(),
		newAuditCmd(),
	)

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %s", err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errSystem), errors.Is(err, types.ErrStorageFailure):
		return exitSysError
	default:
		return exitUserError
	}
}

// openShelter resolves directories and configuration, then attaches a
// backend. The caller must Detach it.
func openShelter(cmd *cobra.Command, override func(*types.Config)) (*sqlite.Backend, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, systemError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, systemError(err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, systemError(fmt.Errorf("resolve data dir: %w", err))
	}

	cfg, err := buildConfig(v, dataDir)
	if err != nil {
		return nil, systemError(err)
	}
	if override != nil {
		override(&cfg)
	}

	logger, err := newLogger(cmd, v.GetString(cfgKeyLogLevel))
	if err != nil {
		return nil, err
	}

	b := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := b.Attach(cfg); err != nil {
		return nil, systemError(fmt.Errorf("attach: %w", err))
	}
	return b, nil
}

// withShelter runs fn against an attached backend and detaches afterwards.
func withShelter(cmd *cobra.Command, fn func(ctx context.Context, b *sqlite.Backend) error) error {
	b, err := openShelter(cmd, nil)
	if err != nil {
		return err
	}
	defer b.Detach()
	return fn(cmd.Context(), b)
}

// newLogger builds a text logger on stderr. The --log-level flag wins over
// the configured level.
func newLogger(cmd *cobra.Command, configured string) (*slog.Logger, error) {
	name := flags.logLevel
	if name == "" {
		name = configured
	}
	var level slog.Level
	if name != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
			return nil, fmt.Errorf("invalid log level %q", name)
		}
	} else {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}
