package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecore/internal/compiler"
	"github.com/roach88/scenecore/internal/engine"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
	"github.com/roach88/scenecore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	Scene        string
	Rate         float64
	Duration     time.Duration
	MaxSteps     int
	LoopBreaking bool
	Watch        bool

	// TokenGenerator allows overriding the cascade token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Instantiate a scene and drive its clock",
		Long: `Instantiate a scene and drive it with clock ticks.

The scene is loaded from the CUE declarations in the directory, validated,
and instantiated in a single engine. Ticks are queued at --rate per second
of scene time, for --duration (or until interrupted). With --db every
cascade and delivery is recorded to SQLite for "scenecore trace".

With --watch, changes to .cue files reload the scene between cascades.

Example:
  scenecore run ./scenes --db ./trace.db --duration 5s
  scenecore run ./scenes --scene Lamp --rate 30 --watch --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (overrides store.path)")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene to run (required when several are declared)")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "ticks per second of scene time (overrides clock.rate)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "scene time to run for, 0 runs until interrupted (overrides clock.duration)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "delivery quota per timestamp (overrides engine.max_steps)")
	cmd.Flags().BoolVar(&opts.LoopBreaking, "loop-breaking", false, "fire each eventOut at most once per timestamp")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload the scene when .cue files change")

	return cmd
}

func runEngine(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	cfg := *opts.cfg()
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.Path = opts.Database
	}
	if flags.Changed("rate") {
		cfg.Clock.Rate = opts.Rate
	}
	if flags.Changed("duration") {
		cfg.Clock.Duration = opts.Duration
	}
	if flags.Changed("max-steps") {
		cfg.Engine.MaxSteps = opts.MaxSteps
	}
	if flags.Changed("loop-breaking") {
		cfg.Engine.LoopBreaking = opts.LoopBreaking
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid run options", err)
	}
	logger := opts.log()

	reg, err := newRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up kinds", err)
	}

	logger.Info("loading scene", "dir", specsDir, "scene", opts.Scene)
	spec, err := loadScene(specsDir, opts.Scene, reg)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load scene", err)
	}
	for _, w := range compiler.AnalyzeCycles(*spec) {
		logger.Warn(w.Message, "scene", spec.Name, "routes", w.Routes)
	}

	tokens := opts.TokenGenerator
	if tokens == nil {
		tokens = engine.UUIDv7Generator{}
	}
	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithTokenGenerator(tokens),
		engine.WithMaxSteps(cfg.Engine.MaxSteps),
		engine.WithLoopBreaking(cfg.Engine.LoopBreaking),
	}

	var recorder *store.Recorder
	if cfg.Store.Path != "" {
		logger.Info("opening database", "path", cfg.Store.Path)
		st, err := store.Open(cfg.Store.Path, store.WithBusyTimeout(cfg.Store.BusyTimeout))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = store.NewRecorder(context.Background(), st, logger)
		engineOpts = append(engineOpts, engine.WithObserver(recorder))
	}

	eng := engine.New(reg, engineOpts...)
	if err := eng.Instantiate(*spec); err != nil {
		return WrapExitError(ExitFailure, "failed to instantiate scene", err)
	}
	logger.Info("scene loaded", "scene", spec.Name, "nodes", len(spec.Nodes), "routes", len(spec.Routes))

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.Watch {
		w, err := watchSpecs(ctx, specsDir, spec.Name, reg, eng, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch specs", err)
		}
		defer w.Close()
	}

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.Printf("Running scene %s at %g ticks/s. Press Ctrl-C to stop.\n", spec.Name, cfg.Clock.Rate)

	ticks := driveClock(ctx, eng, cfg.Clock.Rate, cfg.Clock.Duration)
	eng.Stop()
	runErr := <-done
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}

	if recorder != nil {
		if failures, lastErr := recorder.Failures(); failures > 0 {
			logger.Error("trace recording failed", "failures", failures, "error", lastErr)
		}
	}

	logger.Info("engine stopped gracefully", "ticks", ticks, "scene_time", eng.Clock().Now())
	formatter.Printf("Stopped after %d tick(s) at t=%g\n", ticks, eng.Clock().Now())
	if formatter.JSON() {
		return formatter.Success(map[string]any{
			"scene":      spec.Name,
			"ticks":      ticks,
			"scene_time": eng.Clock().Now(),
		})
	}
	return nil
}

// driveClock queues a tick every 1/rate seconds until duration of scene
// time has elapsed or ctx is done. The first tick is at t=0. It returns
// the number of ticks queued.
func driveClock(ctx context.Context, eng *engine.Engine, rate float64, duration time.Duration) int {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	limit := duration.Seconds()
	for n := 0; ; n++ {
		ts := float64(n) / rate
		if duration > 0 && ts > limit {
			return n
		}
		if !eng.Enqueue(engine.Event{Type: engine.EventTypeTick, Time: ts}) {
			return n
		}
		select {
		case <-ctx.Done():
			return n + 1
		case <-ticker.C:
		}
	}
}

// loadScene loads the declarations in dir, selects a scene and validates it
// against the registry's kinds.
func loadScene(dir, name string, reg *node.Registry) (*ir.SceneSpec, error) {
	result, errs := LoadSpecs(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	spec, err := result.Scene(name)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.ValidateWithKinds(spec, reg); len(verrs) > 0 {
		joined := make([]error, len(verrs))
		for i, ve := range verrs {
			joined[i] = ve
		}
		return nil, fmt.Errorf("scene %q is invalid: %w", spec.Name, errors.Join(joined...))
	}
	return spec, nil
}

// reloadMutation replaces the running scene between cascades.
func reloadMutation(spec *ir.SceneSpec, logger *slog.Logger) engine.Event {
	return engine.Event{
		Type:  engine.EventTypeMutation,
		Label: "reload " + spec.Name,
		Mutate: func(e *engine.Engine) error {
			if err := e.Reload(*spec); err != nil {
				return err
			}
			logger.Info("scene reloaded", "scene", spec.Name, "nodes", len(spec.Nodes), "routes", len(spec.Routes))
			return nil
		},
	}
}
