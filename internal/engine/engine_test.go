package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/node"
)

func TestEngine_New(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.NotNil(t, e.Arena())
	assert.NotNil(t, e.Scope())
	assert.NotNil(t, e.Router())
	assert.Equal(t, DefaultMaxSteps, e.MaxSteps())
	assert.Equal(t, 0, e.QueueLen())
}

func TestEngine_RouteFanOut(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B", "C")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "A", "x_changed", "C", "set_x")

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))

	for _, nd := range n {
		assert.Equal(t, field.SFBool(true), fieldOf(t, nd, "x"), nd.Name())
		assert.True(t, nd.Modified(), nd.Name())
	}
	assert.Equal(t, []string{"A.set_x", "B.set_x", "C.set_x"}, rec.targets())

	require.Len(t, rec.cascades, 1)
	assert.Equal(t, "cascade-0001", rec.cascades[0].Token)
	assert.Equal(t, "A.set_x", rec.cascades[0].Origin)

	first, second := rec.deliveries[1], rec.deliveries[2]
	assert.Equal(t, "A.x_changed", first.Source())
	assert.Equal(t, 1, first.Depth)
	assert.Equal(t, 1, second.Depth)
	assert.Less(t, first.Seq, second.Seq)
}

func TestEngine_DeliveryIsDepthFirst(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B", "C", "D")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "A", "x_changed", "C", "set_x")
	mustRoute(t, e, "B", "x_changed", "D", "set_x")

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))

	assert.Equal(t, []string{"A.set_x", "B.set_x", "D.set_x", "C.set_x"}, rec.targets())
	assert.Equal(t, []int{0, 1, 2, 1}, []int{
		rec.deliveries[0].Depth, rec.deliveries[1].Depth,
		rec.deliveries[2].Depth, rec.deliveries[3].Depth,
	})
}

func TestEngine_DeliveryKeepsTimestamp(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 4.5))

	for _, d := range rec.deliveries {
		assert.Equal(t, 4.5, d.Timestamp)
	}
	assert.Equal(t, 4.5, e.Clock().Now())
}

func TestEngine_AddRouteTypeMismatch(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "Flag", "A", "B")

	_, err := e.AddRoute("A", "x_changed", "B", "set_color")

	require.Error(t, err)
	assert.True(t, node.IsUnsupportedInterface(err))
	assert.Contains(t, err.Error(), "SFBool")
	assert.Contains(t, err.Error(), "SFColor")
	assert.Equal(t, 0, e.Router().Len(), "rejected route must not be inserted")
}

func TestEngine_AddRouteUnknownInterface(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "Flag", "A", "B")

	tests := []struct {
		name     string
		out, in  string
		wantText string
	}{
		{"missing output", "nope_changed", "set_x", "nope_changed"},
		{"missing input", "x_changed", "set_nope", "set_nope"},
		{"input used as output", "increment", "set_x", "increment"},
		{"output used as input", "x_changed", "count_changed", "count_changed"},
		{"field is not an event", "count", "set_x", "count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddRoute("A", tt.out, "B", tt.in)
			require.Error(t, err)
			assert.True(t, node.IsUnsupportedInterface(err))
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
	assert.Equal(t, 0, e.Router().Len())
}

func TestEngine_AddRouteUnknownNode(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "Flag", "A")

	_, err := e.AddRoute("A", "x_changed", "Ghost", "set_x")

	require.Error(t, err)
	assert.True(t, IsUnknownNode(err))
}

func TestEngine_AddRouteDuplicateIsNoop(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	first := mustRoute(t, e, "A", "x_changed", "B", "set_x")
	second := mustRoute(t, e, "A", "x_changed", "B", "x")

	assert.Same(t, first, second, "aliases name the same route")
	assert.Equal(t, 1, e.Router().Len())

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))
	assert.Len(t, rec.deliveries, 2, "duplicate route must not deliver twice")
}

func TestEngine_RemoveRouteIdempotent(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")

	assert.True(t, e.RemoveRoute("A", "x_changed", "B", "set_x"))
	assert.False(t, e.RemoveRoute("A", "x_changed", "B", "set_x"))
	assert.False(t, e.RemoveRoute("A", "nope", "B", "set_x"))
	assert.False(t, e.RemoveRoute("Ghost", "x_changed", "B", "set_x"))
	assert.Equal(t, 0, e.Router().Len())

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))
	assert.Equal(t, field.SFBool(false), fieldOf(t, n[1], "x"))
	assert.Equal(t, []string{"A.set_x"}, rec.targets())
}

func TestEngine_RoutesInInsertionOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "Flag", "A", "B", "C")
	mustRoute(t, e, "B", "x_changed", "C", "set_x")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "A", "x_changed", "C", "set_x")

	routes := e.Router().Routes()

	require.Len(t, routes, 3)
	assert.Equal(t, "B.x_changed TO C.set_x", routes[0].String())
	assert.Equal(t, "A.x_changed TO B.set_x", routes[1].String())
	assert.Equal(t, "A.x_changed TO C.set_x", routes[2].String())
}

func TestEngine_EventInHandlerEmits(t *testing.T) {
	e, _ := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "count_changed", "B", "increment")

	require.NoError(t, e.SendEvent(n[0], "increment", field.SFInt32(3), 1))
	require.NoError(t, e.SendEvent(n[0], "increment", field.SFInt32(4), 2))

	assert.Equal(t, field.SFInt32(7), n[0].Value("count"))
	// B receives A's running totals 3 and 7
	assert.Equal(t, field.SFInt32(10), n[1].Value("count"))
}

func TestEngine_SendWrongType(t *testing.T) {
	e, _ := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A")

	err := e.SendEvent(n[0], "set_x", field.SFInt32(1), 1)

	require.Error(t, err)
	assert.True(t, field.IsTypeMismatch(err))
	assert.False(t, e.Router().InCascade(), "failed cascade must still end")
}

func TestEngine_EmitOutput(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "count_changed", "B", "increment")

	require.NoError(t, e.Emit(n[0], "count_changed", field.SFInt32(5), 1))

	assert.Equal(t, field.SFInt32(5), n[1].Value("count"))
	require.Len(t, rec.cascades, 1)
	assert.Equal(t, "A.count_changed", rec.cascades[0].Origin)
}

func TestEngine_EmitWithoutRoutesStartsNoCascade(t *testing.T) {
	e, rec := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A")

	require.NoError(t, e.Emit(n[0], "count_changed", field.SFInt32(5), 1))

	assert.Empty(t, rec.cascades)
	em, err := n[0].EventEmitter("count_changed")
	require.NoError(t, err)
	ts, fired := em.LastFired()
	assert.True(t, fired)
	assert.Equal(t, 1.0, ts)
}

func TestEngine_DeliveredValueIsSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "children_changed", "B", "set_children")

	kids := field.MFNode{{ID: n[1].ID()}}
	require.NoError(t, e.SendEvent(n[0], "set_children", kids, 1))
	kids[0] = field.SFNode{}

	got := fieldOf(t, n[1], "children").(field.MFNode)
	assert.Equal(t, field.MFNode{{ID: n[1].ID()}}, got)
}

func TestEngine_CycleHitsQuota(t *testing.T) {
	e, rec := newTestEngine(t, WithMaxSteps(10))
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "B", "x_changed", "A", "set_x")

	err := e.SendEvent(n[0], "set_x", field.SFBool(true), 1)

	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsQuotaError(err))
	assert.Len(t, rec.deliveries, 10)
	assert.False(t, e.Router().InCascade())

	var se *StepsExceededError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "cascade-0001", se.Cascade)
	assert.Equal(t, ErrCodeQuotaExceeded, se.RuntimeError().Code)
}

func TestEngine_QuotaResetsPerTimestamp(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxSteps(3))
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")

	// two deliveries per send; the third send at the same time goes over
	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))
	err := e.SendEvent(n[0], "set_x", field.SFBool(false), 1)
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 2))
}

func TestEngine_QuotaDisabled(t *testing.T) {
	e, rec := newTestEngine(t, WithMaxSteps(-1))
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "count_changed", "B", "increment")

	for i := 0; i < 2000; i++ {
		require.NoError(t, e.SendEvent(n[0], "increment", field.SFInt32(1), 1))
	}
	assert.Len(t, rec.deliveries, 4000)
}

func TestEngine_LoopBreaking(t *testing.T) {
	e, rec := newTestEngine(t, WithLoopBreaking(true))
	n := mustCreate(t, e, "Flag", "A", "B")
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "B", "x_changed", "A", "set_x")

	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(true), 1))

	assert.Equal(t, []string{"A.set_x", "B.set_x", "A.set_x"}, rec.targets())
	assert.Equal(t, field.SFBool(true), fieldOf(t, n[0], "x"))
	assert.Equal(t, field.SFBool(true), fieldOf(t, n[1], "x"))

	// a later timestamp may fire the same emitters again
	require.NoError(t, e.SendEvent(n[0], "set_x", field.SFBool(false), 2))
	assert.Len(t, rec.deliveries, 6)
	assert.Equal(t, field.SFBool(false), fieldOf(t, n[1], "x"))
}

func TestEngine_RouteEditsDuringCascadeAreDeferred(t *testing.T) {
	var (
		e             *Engine
		lenInside     int
		collectInside error
	)
	wirer := node.NewKind("Wirer").
		EventIn("connect", field.TypeSFBool, func(n *node.Node, v field.Value, ts float64) error {
			if _, err := e.AddRoute("A", "x_changed", "B", "set_x"); err != nil {
				return err
			}
			lenInside = e.Router().Len()
			_, collectInside = e.Collect()
			return nil
		}).
		MustBuild()
	e = New(testRegistry(t, wirer))
	mustCreate(t, e, "Flag", "A", "B")
	mustCreate(t, e, "Wirer", "W")
	w, _ := e.Lookup("W")

	require.NoError(t, e.SendEvent(w, "connect", field.SFBool(true), 1))

	assert.Equal(t, 0, lenInside, "route must not be live during the cascade")
	assert.ErrorIs(t, collectInside, ErrCascadeInProgress)
	assert.Equal(t, 1, e.Router().Len())
}

func TestEngine_RouteAddedDuringCascadeStillValidated(t *testing.T) {
	var (
		e      *Engine
		addErr error
	)
	wirer := node.NewKind("Wirer").
		EventIn("connect", field.TypeSFBool, func(n *node.Node, v field.Value, ts float64) error {
			_, addErr = e.AddRoute("A", "x_changed", "B", "set_color")
			return nil
		}).
		MustBuild()
	e = New(testRegistry(t, wirer))
	mustCreate(t, e, "Flag", "A", "B")
	mustCreate(t, e, "Wirer", "W")
	w, _ := e.Lookup("W")

	require.NoError(t, e.SendEvent(w, "connect", field.SFBool(true), 1))

	assert.True(t, node.IsUnsupportedInterface(addErr))
	assert.Equal(t, 0, e.Router().Len())
}

func TestEngine_CollectPrunesRoutes(t *testing.T) {
	e, _ := newTestEngine(t)
	a := mustCreate(t, e, "Flag", "A")[0]
	b, err := e.CreateNode("Flag", "B")
	require.NoError(t, err)
	mustRoute(t, e, "A", "x_changed", "B", "set_x")
	mustRoute(t, e, "B", "x_changed", "A", "set_x")

	dead, err := e.Collect()

	require.NoError(t, err)
	assert.Equal(t, []field.NodeID{b.ID()}, dead)
	assert.False(t, b.Alive())
	assert.True(t, a.Alive())
	assert.Equal(t, 0, e.Router().Len())
	_, err = e.Lookup("B")
	assert.True(t, IsUnknownNode(err))
}

func TestEngine_CollectKeepsReferencedChildren(t *testing.T) {
	e, _ := newTestEngine(t)
	parent := mustCreate(t, e, "Flag", "P")[0]
	child, err := e.CreateNode("Flag", "C")
	require.NoError(t, err)
	require.NoError(t, parent.SetField("children", field.MFNode{{ID: child.ID()}}))

	dead, err := e.Collect()
	require.NoError(t, err)
	assert.Empty(t, dead)
	assert.True(t, child.Alive())

	require.NoError(t, parent.SetField("children", field.MFNode{}))
	dead, err = e.Collect()
	require.NoError(t, err)
	assert.Equal(t, []field.NodeID{child.ID()}, dead)
}

func TestEngine_Tick(t *testing.T) {
	e, rec := newTestEngine(t)
	mustCreate(t, e, "Ticker", "T")
	f := mustCreate(t, e, "Flag", "F")[0]
	mustRoute(t, e, "T", "time", "F", "set_stamp")

	require.NoError(t, e.Tick(2.5))

	assert.Equal(t, field.SFTime(2.5), fieldOf(t, f, "stamp"))
	assert.Equal(t, 2.5, e.Clock().Now())
	require.Len(t, rec.cascades, 1)
	assert.Equal(t, "T.time", rec.cascades[0].Origin)
}

func TestEngine_TickContinuesAfterFailure(t *testing.T) {
	failing := node.NewKind("Broken").
		Tick(func(n *node.Node, ts float64) error { return errors.New("boom") }).
		MustBuild()
	e := New(testRegistry(t, failing))
	b, err := e.CreateNode("Broken", "X")
	require.NoError(t, err)
	require.NoError(t, e.Arena().AddRoot(b))
	mustCreate(t, e, "Ticker", "T")
	f := mustCreate(t, e, "Flag", "F")[0]
	mustRoute(t, e, "T", "time", "F", "set_stamp")

	err = e.Tick(1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, field.SFTime(1), fieldOf(t, f, "stamp"))
}

func TestEngine_DefineTypeSubset(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.DefineType(irType("Switch", "Flag", "exposedField SFBool x"))
	require.NoError(t, err)

	n, err := e.CreateNode("Switch", "S")
	require.NoError(t, err)

	_, err = n.Field("x")
	assert.NoError(t, err)
	_, err = n.Field("color")
	assert.True(t, node.IsUnsupportedInterface(err))
	_, err = n.EventListener("increment")
	assert.True(t, node.IsUnsupportedInterface(err))
}

func TestEngine_DefineTypeErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.DefineType(irType("T", "Nope"))
	assert.Equal(t, ErrCodeUnknownType, err.(*RuntimeError).Code)

	_, err = e.DefineType(irType("T", "Flag", "exposedField SFInt32 x"))
	assert.True(t, node.IsUnsupportedInterface(err))

	_, err = e.DefineType(irType("T", "Flag", "sideways SFBool x"))
	assert.Error(t, err)

	_, err = e.DefineType(irType("T", "Flag"))
	require.NoError(t, err)
	_, err = e.DefineType(irType("T", "Flag"))
	assert.ErrorContains(t, err, "already defined")
}

func TestEngine_RunProcessesQueue(t *testing.T) {
	e, _ := newTestEngine(t)
	n := mustCreate(t, e, "Flag", "A", "B")

	e.Enqueue(Event{Type: EventTypeMutation, Label: "wire", Mutate: func(e *Engine) error {
		_, err := e.AddRoute("A", "count_changed", "B", "increment")
		return err
	}})
	e.Enqueue(Event{Type: EventTypeSend, Node: "A", Name: "increment", Value: field.SFInt32(2), Time: 1})
	e.Enqueue(Event{Type: EventTypeSend, Node: "Ghost", Name: "increment", Value: field.SFInt32(2), Time: 1})
	e.Enqueue(Event{Type: EventTypeSend, Node: "A", Name: "increment", Time: 1})
	e.Enqueue(Event{Type: EventTypeTick, Time: 3})
	e.Enqueue(Event{Type: EventTypeEmit, Node: "A", Name: "count_changed", Value: field.SFInt32(10), Time: 3})
	e.Stop()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.Equal(t, field.SFInt32(2), n[0].Value("count"))
	assert.Equal(t, field.SFInt32(12), n[1].Value("count"))
	assert.Equal(t, 3.0, e.Clock().Now())
	assert.False(t, e.Enqueue(Event{Type: EventTypeTick, Time: 4}), "stopped engine rejects events")
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngine_ProcessEventErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.processEvent(Event{Type: EventTypeMutation})
	assert.Equal(t, ErrCodeInvalidEvent, err.(*RuntimeError).Code)

	err = e.processEvent(Event{Type: EventType(99)})
	assert.Equal(t, ErrCodeInvalidEvent, err.(*RuntimeError).Code)

	err = e.processEvent(Event{Type: EventTypeSend, Node: "A"})
	assert.Equal(t, ErrCodeInvalidEvent, err.(*RuntimeError).Code)
}
