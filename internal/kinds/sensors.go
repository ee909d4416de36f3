package kinds

import (
	"errors"
	"math"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/node"
)

// TouchSensor reports pointer activity on its sibling geometry. With no
// picking in the runtime, its outputs are driven through Touch or the
// engine's Emit.
func TouchSensor() *node.Kind {
	return node.NewKind("TouchSensor").
		ExposedField("enabled", field.SFBool(true), nil).
		EventOut("hitPoint_changed", field.TypeSFVec3f).
		EventOut("isActive", field.TypeSFBool).
		EventOut("isOver", field.TypeSFBool).
		EventOut("touchTime", field.TypeSFTime).
		MustBuild()
}

// ErrSensorDisabled is returned by Touch for a disabled sensor.
var ErrSensorDisabled = errors.New("sensor disabled")

// Touch synthesizes a complete click on a TouchSensor at ts: the pointer
// moves over hit, the button goes down and up, and touchTime fires.
func Touch(n *node.Node, hit field.SFVec3f, ts float64) error {
	if enabled, ok := n.Value("enabled").(field.SFBool); !ok || !bool(enabled) {
		return ErrSensorDisabled
	}
	emits := []struct {
		name string
		v    field.Value
	}{
		{"isOver", field.SFBool(true)},
		{"hitPoint_changed", hit},
		{"isActive", field.SFBool(true)},
		{"isActive", field.SFBool(false)},
		{"touchTime", field.SFTime(ts)},
	}
	for _, e := range emits {
		if err := n.Emit(e.name, e.v, ts); err != nil {
			return err
		}
	}
	return nil
}

// TimeSensor generates time events while active. It is driven by the
// engine's Tick and follows the VRML97 activation rules: active from
// startTime, until stopTime if stopTime > startTime, and for one cycle
// unless loop is set.
func TimeSensor() *node.Kind {
	return node.NewKind("TimeSensor").
		ExposedField("cycleInterval", field.SFTime(1), nil).
		ExposedField("enabled", field.SFBool(true), nil).
		ExposedField("loop", field.SFBool(false), nil).
		ExposedField("startTime", field.SFTime(0), nil).
		ExposedField("stopTime", field.SFTime(0), nil).
		EventOut("cycleTime", field.TypeSFTime).
		EventOut("fraction_changed", field.TypeSFFloat).
		EventOut("isActive", field.TypeSFBool).
		EventOut("time", field.TypeSFTime).
		Init(func(n *node.Node) { n.SetState(&timeState{}) }).
		Tick(tickTimeSensor).
		MustBuild()
}

type timeState struct {
	active     bool
	cycleStart float64
}

func tickTimeSensor(n *node.Node, ts float64) error {
	st := n.State().(*timeState)
	if !bool(n.Value("enabled").(field.SFBool)) {
		if st.active {
			st.active = false
			return n.Emit("isActive", field.SFBool(false), ts)
		}
		return nil
	}

	interval := float64(n.Value("cycleInterval").(field.SFTime))
	start := float64(n.Value("startTime").(field.SFTime))
	stop := float64(n.Value("stopTime").(field.SFTime))
	loop := bool(n.Value("loop").(field.SFBool))
	if interval <= 0 || ts < start {
		return nil
	}
	stopped := stop > start && ts >= stop

	if !st.active {
		if stopped || (!loop && ts >= start+interval) {
			return nil
		}
		st.active = true
		st.cycleStart = start
		if err := n.Emit("isActive", field.SFBool(true), ts); err != nil {
			return err
		}
		if err := n.Emit("cycleTime", field.SFTime(ts), ts); err != nil {
			return err
		}
	}

	now := ts
	if stopped {
		now = stop
	}
	elapsed := now - start
	var fraction float64
	switch {
	case !loop && elapsed >= interval:
		fraction = 1
		stopped = true
	default:
		fraction = math.Mod(elapsed, interval) / interval
		if fraction == 0 && elapsed > 0 {
			fraction = 1
		}
		if cycle := start + math.Floor(elapsed/interval)*interval; cycle > st.cycleStart && !stopped {
			st.cycleStart = cycle
			if err := n.Emit("cycleTime", field.SFTime(ts), ts); err != nil {
				return err
			}
		}
	}

	if err := n.Emit("fraction_changed", field.SFFloat(fraction), ts); err != nil {
		return err
	}
	if err := n.Emit("time", field.SFTime(ts), ts); err != nil {
		return err
	}
	if stopped {
		st.active = false
		return n.Emit("isActive", field.SFBool(false), ts)
	}
	return nil
}
