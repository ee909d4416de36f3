package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs the scenarios under testdata/scenarios and compares
// their traces against testdata/golden.
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name         string
		scenarioPath string
	}{
		{
			name:         "touch_starts_clock",
			scenarioPath: "../../testdata/scenarios/touch_starts_clock.yaml",
		},
		{
			name:         "time_sensor_fader",
			scenarioPath: "../../testdata/scenarios/time_sensor_fader.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(tt.scenarioPath)
			require.NoError(t, err)
			assert.Equal(t, tt.name, scenario.Name)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// TestDemoScenarioSeqOrder checks the timeline is stamped with strictly
// increasing seq values and that every delivery belongs to the cascade
// started before it.
func TestDemoScenarioSeqOrder(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/touch_starts_clock.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)
	require.Equal(t, EventCascade, result.Trace[0].Type)

	current := ""
	for i, ev := range result.Trace {
		if i > 0 {
			assert.Greater(t, ev.Seq, result.Trace[i-1].Seq, "trace[%d]", i)
		}
		switch ev.Type {
		case EventCascade:
			assert.NotEqual(t, current, ev.Cascade, "cascade tokens are unique")
			current = ev.Cascade
		case EventDelivery:
			assert.Equal(t, current, ev.Cascade, "trace[%d] belongs to the open cascade", i)
		}
	}
}

func TestDemoScenarioReplay(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/time_sensor_fader.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Pass, second.Pass)
}
