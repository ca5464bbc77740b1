package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/pubsim/sim/trace"
)

const smallScenario = `
seed: 1
steps: 10
default:
  min_latency: 5
  max_latency: 6
clients:
  - kind: sequential
    name: p
    channel: c
  - kind: recorder
    name: r
    subscribe:
      - channel: c
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunScenario_PrintsDeliveries(t *testing.T) {
	// GIVEN a small fixed-latency scenario and uncolored output
	color.NoColor = true
	var out bytes.Buffer

	// WHEN it is run
	err := runScenario(&out, runOptions{scenarioPath: writeScenario(t, smallScenario)})
	require.NoError(t, err)

	// THEN the recorder's deliveries are listed in order
	output := out.String()
	assert.Contains(t, output, "=== r ===")
	assert.Contains(t, output, "received: 5 messages, reached t=10")
	assert.Contains(t, output, "pending: 5 still queued")
	assert.Contains(t, output, "from=2 sent=1.0 seq=0")
	assert.Contains(t, output, "from=2 sent=5.0 seq=4")
	assert.NotContains(t, output, "Transport Summary", "no trace requested")
}

func TestRunScenario_StepsOverride(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	err := runScenario(&out, runOptions{scenarioPath: writeScenario(t, smallScenario), steps: 20})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "received: 15 messages, reached t=20")
}

func TestRunScenario_TraceOutWritesYAML(t *testing.T) {
	// GIVEN a trace output path and a seed override
	color.NoColor = true
	tracePath := filepath.Join(t.TempDir(), "trace.yaml")
	seed := int64(9)
	var out bytes.Buffer

	// WHEN run
	err := runScenario(&out, runOptions{scenarioPath: writeScenario(t, smallScenario), seed: &seed, traceOut: tracePath})
	require.NoError(t, err)

	// THEN a summary is printed and the trace file decodes
	assert.Contains(t, out.String(), "=== Transport Summary ===")
	assert.Contains(t, out.String(), "sends: 10")
	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	var st trace.SimulationTrace
	require.NoError(t, yaml.Unmarshal(data, &st))
	assert.NotEmpty(t, st.RunID)
	assert.Len(t, st.Sends, 10)
	assert.Len(t, st.Deliveries, 5)
}

func TestRunScenario_InvalidScenario(t *testing.T) {
	var out bytes.Buffer
	err := runScenario(&out, runOptions{scenarioPath: writeScenario(t, "seed: 1\nclients: []\n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one client")

	err = runScenario(&out, runOptions{scenarioPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading scenario")
}

func TestRunCmd_FlagDefaults(t *testing.T) {
	assert.Equal(t, "error", runCmd.Flags().Lookup("log").DefValue)
	assert.Equal(t, "0", runCmd.Flags().Lookup("steps").DefValue)
	assert.NotNil(t, runCmd.Flags().Lookup("trace-out"))
	assert.NotNil(t, runCmd.Flags().Lookup("scenario"))
}
