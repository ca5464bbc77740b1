package trace

import (
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every send, loss/admission decision and delivery.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel `yaml:"level"`
}

// SimulationTrace collects transport records during a run.
// RunID distinguishes exported traces; it is the only non-deterministic field.
type SimulationTrace struct {
	RunID      string           `yaml:"run_id"`
	Config     TraceConfig      `yaml:"config"`
	Sends      []SendRecord     `yaml:"sends"`
	Decisions  []DecisionRecord `yaml:"decisions"`
	Deliveries []DeliveryRecord `yaml:"deliveries"`
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		RunID:      uuid.New().String(),
		Config:     config,
		Sends:      make([]SendRecord, 0),
		Decisions:  make([]DecisionRecord, 0),
		Deliveries: make([]DeliveryRecord, 0),
	}
}

// Enabled reports whether records should be collected.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordSend appends a send record.
func (st *SimulationTrace) RecordSend(record SendRecord) {
	st.Sends = append(st.Sends, record)
}

// RecordDecision appends a decision record.
func (st *SimulationTrace) RecordDecision(record DecisionRecord) {
	st.Decisions = append(st.Decisions, record)
}

// RecordDelivery appends a delivery record.
func (st *SimulationTrace) RecordDelivery(record DeliveryRecord) {
	st.Deliveries = append(st.Deliveries, record)
}

// WriteYAML exports the trace.
func (st *SimulationTrace) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return errors.Wrap(err, "encoding trace")
	}
	return errors.Wrap(enc.Close(), "closing trace encoder")
}
