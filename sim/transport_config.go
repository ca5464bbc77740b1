package sim

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// BufferPolicy is the admission/eviction rule of a per-subscription queue.
type BufferPolicy string

const (
	// PolicyDiscard never queues or delivers; e.g. for server logging.
	PolicyDiscard BufferPolicy = "discard"
	// PolicyMailbox is shorthand for PolicyQueueNewest with capacity 1.
	PolicyMailbox BufferPolicy = "mailbox"
	// PolicyUnboundedQueue retains every message until delivered.
	PolicyUnboundedQueue BufferPolicy = "unbounded-queue"
	// PolicyQueueNewest drops the oldest queued message on overflow.
	PolicyQueueNewest BufferPolicy = "queue-newest"
	// PolicyQueueOldest refuses the newest message on overflow.
	PolicyQueueOldest BufferPolicy = "queue-oldest"
)

// validBufferPolicies backs Validate and IsValidBufferPolicy.
var validBufferPolicies = map[BufferPolicy]bool{
	PolicyDiscard:        true,
	PolicyMailbox:        true,
	PolicyUnboundedQueue: true,
	PolicyQueueNewest:    true,
	PolicyQueueOldest:    true,
}

// IsValidBufferPolicy returns true if name is a recognized buffer policy.
func IsValidBufferPolicy(name string) bool {
	return validBufferPolicies[BufferPolicy(name)]
}

// ValidBufferPolicyNames returns the recognized policy names, sorted.
func ValidBufferPolicyNames() string {
	return strings.Join([]string{
		string(PolicyDiscard), string(PolicyMailbox), string(PolicyQueueNewest),
		string(PolicyQueueOldest), string(PolicyUnboundedQueue),
	}, ", ")
}

// TransportConfig holds a channel's delivery parameters.
type TransportConfig struct {
	MinLatency           SimTime      // inclusive lower bound of the latency draw
	MaxLatency           SimTime      // exclusive upper bound of the latency draw
	SenderLossFraction   float64      // probability a message is lost for every receiver
	ReceiverLossFraction float64      // probability a message is lost for one receiver
	BufferPolicy         BufferPolicy // admission/eviction rule
	QueueSize            int          // capacity for queue-newest / queue-oldest; ignored otherwise
}

// DefaultTransportConfig applies to channels without an override.
var DefaultTransportConfig = TransportConfig{
	MinLatency:   5,
	MaxLatency:   10,
	BufferPolicy: PolicyUnboundedQueue,
}

// Capacity returns the queue capacity and whether it is bounded.
func (c TransportConfig) Capacity() (int, bool) {
	switch c.BufferPolicy {
	case PolicyMailbox:
		return 1, true
	case PolicyQueueNewest, PolicyQueueOldest:
		return c.QueueSize, true
	case PolicyDiscard:
		return 0, true
	default:
		return 0, false
	}
}

// Validate checks latency bounds, loss fractions and policy parameters.
func (c TransportConfig) Validate() error {
	if c.MinLatency < 1 {
		return errors.Wrapf(ErrInvalidConfig, "min latency must be at least 1, got %d", c.MinLatency)
	}
	if c.MaxLatency <= c.MinLatency {
		return errors.Wrapf(ErrInvalidConfig, "max latency %d must exceed min latency %d", c.MaxLatency, c.MinLatency)
	}
	if c.SenderLossFraction < 0 || c.SenderLossFraction > 1 {
		return errors.Wrapf(ErrInvalidConfig, "sender loss fraction must be in [0, 1], got %f", c.SenderLossFraction)
	}
	if c.ReceiverLossFraction < 0 || c.ReceiverLossFraction > 1 {
		return errors.Wrapf(ErrInvalidConfig, "receiver loss fraction must be in [0, 1], got %f", c.ReceiverLossFraction)
	}
	if !IsValidBufferPolicy(string(c.BufferPolicy)) {
		return errors.Wrapf(ErrInvalidConfig, "unknown buffer policy %q (valid: %s)", c.BufferPolicy, ValidBufferPolicyNames())
	}
	if (c.BufferPolicy == PolicyQueueNewest || c.BufferPolicy == PolicyQueueOldest) && c.QueueSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "%s requires a queue size >= 1, got %d", c.BufferPolicy, c.QueueSize)
	}
	return nil
}

func (c TransportConfig) String() string {
	return fmt.Sprintf("latency=[%d,%d) loss(tx=%.3f rx=%.3f) policy=%s size=%d",
		c.MinLatency, c.MaxLatency, c.SenderLossFraction, c.ReceiverLossFraction, c.BufferPolicy, c.QueueSize)
}

// ConfigStore resolves per-channel transport configuration.
type ConfigStore struct {
	defaults  TransportConfig
	overrides map[ChannelName]TransportConfig
}

// NewConfigStore creates a store whose default is DefaultTransportConfig.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		defaults:  DefaultTransportConfig,
		overrides: make(map[ChannelName]TransportConfig),
	}
}

// Set overrides the default for channel.
func (s *ConfigStore) Set(channel ChannelName, cfg TransportConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "channel %q", channel)
	}
	s.overrides[channel] = cfg
	return nil
}

// SetDefault replaces the configuration of channels without an override.
func (s *ConfigStore) SetDefault(cfg TransportConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "default config")
	}
	s.defaults = cfg
	return nil
}

// Resolve returns the override for channel, or the default. Always returns
// a usable value.
func (s *ConfigStore) Resolve(channel ChannelName) TransportConfig {
	if cfg, ok := s.overrides[channel]; ok {
		return cfg
	}
	return s.defaults
}
