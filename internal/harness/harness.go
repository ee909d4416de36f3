package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/scenecore/internal/compiler"
	"github.com/roach88/scenecore/internal/engine"
	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/kinds"
	"github.com/roach88/scenecore/internal/node"
	"github.com/roach88/scenecore/internal/store"
	"github.com/roach88/scenecore/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a real engine with sequential cascade tokens
// and records every delivery in an in-memory store.
type Harness struct {
	ctx    context.Context
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger

	// nodes remembers every DEF name seen, so liveness can be asserted
	// after collection has dropped the name from the scope.
	nodes map[string]*node.Node
}

// Run executes a test scenario and returns the result. Logs are discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, testutil.DiscardLogger())
}

// RunWithLogger executes a test scenario, logging engine activity to logger.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database and trace recorder
//  2. Compile, validate and instantiate the scene
//  3. Execute steps, checking expected errors
//  4. Read the trace back from the store
//  5. Evaluate assertions
//
// The returned error reports a scenario that could not be set up; step and
// assertion failures are reported in the Result.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg := node.NewRegistry()
	if err := kinds.RegisterBuiltins(reg); err != nil {
		return nil, err
	}

	spec, err := loadScene(scenario)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.ValidateWithKinds(spec, reg); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, fmt.Errorf("scene %q is invalid: %w", spec.Name, errors.Join(errs...))
	}
	for _, w := range compiler.AnalyzeCycles(*spec) {
		logger.Warn(w.Message, "scene", spec.Name, "routes", w.Routes)
	}

	recorder := store.NewRecorder(ctx, st, logger)
	opts := []engine.EngineOption{
		engine.WithTokenGenerator(testutil.NewSequentialTokens(scenario.CascadePrefix)),
		engine.WithObserver(recorder),
		engine.WithLogger(logger),
		engine.WithLoopBreaking(scenario.Engine.LoopBreaking),
	}
	if scenario.Engine.MaxSteps != 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.Engine.MaxSteps))
	}
	eng := engine.New(reg, opts...)
	if err := eng.Instantiate(*spec); err != nil {
		return nil, fmt.Errorf("failed to instantiate scene: %w", err)
	}

	h := &Harness{
		ctx:    ctx,
		store:  st,
		engine: eng,
		logger: logger,
		nodes:  make(map[string]*node.Node),
	}
	for _, name := range eng.Scope().Names() {
		if n, err := eng.Lookup(name); err == nil {
			h.nodes[name] = n
		}
	}

	result := NewResult()
	h.executeSteps(scenario.Steps, result)

	if failures, lastErr := recorder.Failures(); failures > 0 {
		return nil, fmt.Errorf("trace recording failed %d times: %w", failures, lastErr)
	}
	timeline, err := st.Timeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace, err = toTraceEvents(timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace: %w", err)
	}

	for _, msg := range h.EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadScene compiles the scenario's CUE sources and selects its scene.
func loadScene(s *Scenario) (*ir.SceneSpec, error) {
	ctx := cuecontext.New()
	var (
		v   cue.Value
		set bool
	)
	unify := func(next cue.Value) {
		if !set {
			v, set = next, true
			return
		}
		v = v.Unify(next)
	}

	for _, path := range s.Specs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read spec: %w", err)
		}
		unify(ctx.CompileBytes(data, cue.Filename(path)))
	}
	if s.Source != "" {
		unify(ctx.CompileString(s.Source, cue.Filename(s.Name+".cue")))
	}

	if !set {
		return nil, fmt.Errorf("scenario %q has no specs or source", s.Name)
	}

	specs, err := compiler.CompileScenes(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}
	if s.Scene == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("specs declare %d scenes; name one with scene:", len(specs))
		}
		return &specs[0], nil
	}
	for i := range specs {
		if specs[i].Name == s.Scene {
			return &specs[i], nil
		}
	}
	return nil, fmt.Errorf("scene %q not declared", s.Scene)
}

// executeSteps runs all steps in order. A step that fails unexpectedly, or
// succeeds when an error was expected, fails the result but does not stop
// the run.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		op := step.Op()
		err := h.executeStep(step)
		code := ""
		if err != nil {
			code = ErrorCode(err)
		}

		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, op, err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, op, step.ExpectError))
		case step.ExpectError != "" && code != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s: %v", i, op, step.ExpectError, code, err))
		}

		h.logger.Debug("step completed",
			"step", i,
			"op", op,
			"error_code", code,
		)
	}
}

func (h *Harness) executeStep(step Step) error {
	switch step.Op() {
	case OpSend:
		ev := step.Send
		n, err := h.lookup(ev.Node)
		if err != nil {
			return err
		}
		l, err := n.EventListener(ev.Event)
		if err != nil {
			return err
		}
		v, err := h.decode(l.Type(), ev.Value)
		if err != nil {
			return err
		}
		return h.engine.SendEvent(n, ev.Event, v, h.timeOf(ev.Time))

	case OpEmit:
		ev := step.Emit
		n, err := h.lookup(ev.Node)
		if err != nil {
			return err
		}
		em, err := n.EventEmitter(ev.Event)
		if err != nil {
			return err
		}
		v, err := h.decode(em.Type(), ev.Value)
		if err != nil {
			return err
		}
		return h.engine.Emit(n, ev.Event, v, h.timeOf(ev.Time))

	case OpSet:
		n, err := h.lookup(step.Set.Node)
		if err != nil {
			return err
		}
		cur, err := n.Field(step.Set.Field)
		if err != nil {
			return err
		}
		v, err := h.decode(cur.Type(), step.Set.Value)
		if err != nil {
			return err
		}
		return n.SetField(step.Set.Field, v)

	case OpTouch:
		n, err := h.lookup(step.Touch.Node)
		if err != nil {
			return err
		}
		var hit field.SFVec3f
		for i, c := range step.Touch.Point {
			hit[i] = float32(c)
		}
		return kinds.Touch(n, hit, h.timeOf(step.Touch.Time))

	case OpTick:
		return h.engine.Tick(*step.Tick)

	case OpAddRoute:
		r, err := compiler.ParseRoute(step.AddRoute)
		if err != nil {
			return err
		}
		_, err = h.engine.AddRoute(r.FromNode, r.FromEvent, r.ToNode, r.ToEvent)
		return err

	case OpRemoveRoute:
		r, err := compiler.ParseRoute(step.RemoveRoute)
		if err != nil {
			return err
		}
		h.engine.RemoveRoute(r.FromNode, r.FromEvent, r.ToNode, r.ToEvent)
		return nil

	case OpCollect:
		_, err := h.engine.Collect()
		return err
	}
	return fmt.Errorf("step has no single operation")
}

// lookup resolves a DEF name and remembers the node.
func (h *Harness) lookup(name string) (*node.Node, error) {
	n, err := h.engine.Lookup(name)
	if err != nil {
		return nil, err
	}
	h.nodes[name] = n
	return n, nil
}

func (h *Harness) timeOf(t *float64) float64 {
	if t == nil {
		return h.engine.Clock().Now()
	}
	return *t
}

// decode converts a YAML value to a field value, resolving DEF names.
func (h *Harness) decode(t field.Type, raw any) (field.Value, error) {
	dec := field.Decoder{ResolveNode: func(ref any) (field.NodeID, error) {
		name, ok := ref.(string)
		if !ok {
			return 0, fmt.Errorf("node reference must be a DEF name, got %T", ref)
		}
		n, err := h.lookup(name)
		if err != nil {
			return 0, err
		}
		return n.ID(), nil
	}}
	v, err := dec.Decode(t, raw)
	if err != nil {
		return nil, &InvalidValueError{Type: t, Err: err}
	}
	return v, nil
}

// InvalidValueError reports a scenario value that does not decode to the
// field type it is used with.
type InvalidValueError struct {
	Type field.Type
	Err  error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s value: %v", e.Type, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// Error codes reported for step failures that carry no code of their own.
const (
	CodeTypeMismatch      = "TYPE_MISMATCH"
	CodeInvalidValue      = "INVALID_VALUE"
	CodeCascadeInProgress = "CASCADE_IN_PROGRESS"
	CodeSensorDisabled    = "SENSOR_DISABLED"
	CodeError             = "ERROR"
)

// ErrorCode classifies err for expect_error matching.
func ErrorCode(err error) string {
	var (
		ui *node.UnsupportedInterfaceError
		re *engine.RuntimeError
		tm *field.TypeMismatchError
		iv *InvalidValueError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ui):
		return ui.Code()
	case engine.IsStepsExceededError(err):
		return string(engine.ErrCodeQuotaExceeded)
	case errors.As(err, &re):
		return string(re.Code)
	case errors.As(err, &iv):
		return CodeInvalidValue
	case errors.As(err, &tm):
		return CodeTypeMismatch
	case errors.Is(err, engine.ErrCascadeInProgress):
		return CodeCascadeInProgress
	case errors.Is(err, kinds.ErrSensorDisabled):
		return CodeSensorDisabled
	}
	return CodeError
}
