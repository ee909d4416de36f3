package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecore/internal/config"
	"github.com/roach88/scenecore/internal/kinds"
	"github.com/roach88/scenecore/internal/node"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are set before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger

	// LookupEnv resolves SCENECORE_* overrides. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scenecore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scenecore",
		Short: "scenecore - VRML-style scene graph runtime",
		Long: `Compile, validate and run scene graphs declared in CUE.

Scenes declare node types, DEF-named nodes and routes. The runtime
propagates events along routes in deterministic cascades and records
every delivery to SQLite for inspection.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// setup validates the global flags, loads the configuration and installs
// the logger.
func (o *RootOptions) setup(logOut io.Writer) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.LoadWithEnv(o.ConfigPath, lookup)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	o.Config = cfg
	o.Logger = newLogger(logOut, cfg.Log, o.Verbose)
	slog.SetDefault(o.Logger)
	return nil
}

// cfg returns the loaded configuration, or the defaults when a command
// runs without the root's pre-run hook.
func (o *RootOptions) cfg() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *RootOptions) log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// newLogger builds a text or JSON slog logger. Verbose forces debug level.
func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// newRegistry returns a registry holding the built-in node kinds.
func newRegistry() (*node.Registry, error) {
	reg := node.NewRegistry()
	if err := kinds.RegisterBuiltins(reg); err != nil {
		return nil, fmt.Errorf("failed to register built-in kinds: %w", err)
	}
	return reg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
