// Package scenario loads YAML scenario files and builds runnable
// simulations from them.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/pubsim/sim"
	"github.com/inference-sim/pubsim/sim/trace"
)

// Client kinds.
const (
	KindSequential = "sequential"
	KindRecorder   = "recorder"
)

var validKinds = map[string]bool{KindSequential: true, KindRecorder: true}

// Spec is a complete scenario: transport configuration, the clients taking
// part and how long to run.
type Spec struct {
	Seed     int64                  `yaml:"seed"`
	Steps    int                    `yaml:"steps"`
	Trace    string                 `yaml:"trace,omitempty"`
	Default  *ChannelSpec           `yaml:"default,omitempty"`
	Channels map[string]ChannelSpec `yaml:"channels,omitempty"`
	Clients  []ClientSpec           `yaml:"clients"`
}

// ChannelSpec overrides fields of a transport config. Unset fields keep the
// value of the config it is applied to.
type ChannelSpec struct {
	MinLatency   *int64   `yaml:"min_latency,omitempty"`
	MaxLatency   *int64   `yaml:"max_latency,omitempty"`
	SenderLoss   *float64 `yaml:"sender_loss,omitempty"`
	ReceiverLoss *float64 `yaml:"receiver_loss,omitempty"`
	BufferPolicy *string  `yaml:"buffer_policy,omitempty"`
	QueueSize    *int     `yaml:"queue_size,omitempty"`
}

// ClientSpec describes one participant.
type ClientSpec struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	ID   *int64 `yaml:"id,omitempty"`
	// JoinStep is the driver step before which the client connects.
	JoinStep int `yaml:"join_step,omitempty"`

	// Channel is a sequential client's output channel.
	Channel string `yaml:"channel,omitempty"`
	// Declare makes a sequential client a declared publisher on Channel.
	Declare bool `yaml:"declare,omitempty"`

	Subscribe []SubscriptionSpec `yaml:"subscribe,omitempty"`
}

// SubscriptionSpec is a recorder's subscription. Nil bounds are unbounded.
type SubscriptionSpec struct {
	Channel string `yaml:"channel"`
	Begin   *int64 `yaml:"begin,omitempty"`
	End     *int64 `yaml:"end,omitempty"`
}

// Load reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	return Parse(data)
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	return &spec, nil
}

// Apply returns base with every set field of c overriding it.
func (c ChannelSpec) Apply(base sim.TransportConfig) sim.TransportConfig {
	if c.MinLatency != nil {
		base.MinLatency = sim.SimTime(*c.MinLatency)
	}
	if c.MaxLatency != nil {
		base.MaxLatency = sim.SimTime(*c.MaxLatency)
	}
	if c.SenderLoss != nil {
		base.SenderLossFraction = *c.SenderLoss
	}
	if c.ReceiverLoss != nil {
		base.ReceiverLossFraction = *c.ReceiverLoss
	}
	if c.BufferPolicy != nil {
		base.BufferPolicy = sim.BufferPolicy(*c.BufferPolicy)
	}
	if c.QueueSize != nil {
		base.QueueSize = *c.QueueSize
	}
	return base
}

// DefaultConfig resolves the scenario's default transport config.
func (s *Spec) DefaultConfig() sim.TransportConfig {
	if s.Default == nil {
		return sim.DefaultTransportConfig
	}
	return s.Default.Apply(sim.DefaultTransportConfig)
}

// Validate checks that all fields in the scenario are valid.
func (s *Spec) Validate() error {
	if s.Steps < 0 {
		return errors.Errorf("steps must be non-negative, got %d", s.Steps)
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		return errors.Errorf("unknown trace level %q; valid: none, decisions", s.Trace)
	}
	base := s.DefaultConfig()
	if err := base.Validate(); err != nil {
		return errors.Wrap(err, "default")
	}
	for name, ch := range s.Channels {
		if name == "" {
			return errors.New("channel name must not be empty")
		}
		if err := ch.Apply(base).Validate(); err != nil {
			return errors.Wrapf(err, "channel %q", name)
		}
	}
	if len(s.Clients) == 0 {
		return errors.New("at least one client required")
	}
	names := make(map[string]bool, len(s.Clients))
	for i, c := range s.Clients {
		if err := validateClient(&c, i); err != nil {
			return err
		}
		if names[c.Name] {
			return errors.Errorf("client[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true
	}
	return nil
}

func validateClient(c *ClientSpec, idx int) error {
	prefix := fmt.Sprintf("client[%d]", idx)
	if !validKinds[c.Kind] {
		return errors.Errorf("%s: unknown kind %q; valid: sequential, recorder", prefix, c.Kind)
	}
	if c.Name == "" {
		return errors.Errorf("%s: name must not be empty", prefix)
	}
	if c.ID != nil && *c.ID < int64(sim.MinimumClientID) {
		return errors.Errorf("%s: id %d less than minimum (%d)", prefix, *c.ID, sim.MinimumClientID)
	}
	if c.JoinStep < 0 {
		return errors.Errorf("%s: join_step must be non-negative, got %d", prefix, c.JoinStep)
	}
	switch c.Kind {
	case KindSequential:
		if c.Channel == "" {
			return errors.Errorf("%s: sequential client requires a channel", prefix)
		}
		if len(c.Subscribe) > 0 {
			return errors.Errorf("%s: sequential client cannot subscribe", prefix)
		}
	case KindRecorder:
		if len(c.Subscribe) == 0 {
			return errors.Errorf("%s: recorder requires at least one subscription", prefix)
		}
		if c.Channel != "" || c.Declare {
			return errors.Errorf("%s: recorder does not publish", prefix)
		}
	}
	for j, sub := range c.Subscribe {
		if sub.Channel == "" {
			return errors.Errorf("%s: subscribe[%d]: channel must not be empty", prefix, j)
		}
		if sub.Begin != nil && sub.End != nil && *sub.End < *sub.Begin {
			return errors.Errorf("%s: subscribe[%d]: end %d before begin %d", prefix, j, *sub.End, *sub.Begin)
		}
	}
	return nil
}

// Window converts the subscription bounds to a sim.Window.
func (s SubscriptionSpec) Window() sim.Window {
	var w sim.Window
	if s.Begin != nil {
		b := sim.SimTime(*s.Begin)
		w.Begin = &b
	}
	if s.End != nil {
		e := sim.SimTime(*s.End)
		w.End = &e
	}
	return w
}
