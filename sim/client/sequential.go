package client

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pubsim/sim"
)

// SequentialNumbersConfig configures a SequentialNumbers client.
type SequentialNumbersConfig struct {
	Name          string
	OutputChannel sim.ChannelName
}

// SequentialNumbers sends one message per step carrying consecutive integers
// (0, 1, 2, ...) on its output channel, one time unit apart.
type SequentialNumbers struct {
	config   SequentialNumbersConfig
	conn     *sim.Connection
	cursor   sim.SimTime
	sequence uint32
}

// NewSequentialNumbers creates a publisher that starts sending just after
// conn's start time.
func NewSequentialNumbers(config SequentialNumbersConfig, conn *sim.Connection) *SequentialNumbers {
	return &SequentialNumbers{config: config, conn: conn, cursor: conn.StartTime()}
}

// Act sends the next number at the next time unit.
func (s *SequentialNumbers) Act() error {
	next := s.cursor + 1
	msg := sim.NewOutgoingMessage(next, s.config.OutputChannel, EncodeSequence(s.sequence))
	if err := s.conn.Send(msg); err != nil {
		return errors.Wrapf(err, "%s: sending %d", s.config.Name, s.sequence)
	}
	_, incoming, err := s.conn.TryReceiveUntil(next)
	if err != nil {
		return errors.Wrapf(err, "%s: receiving", s.config.Name)
	}
	if len(incoming) > 0 {
		logrus.Warnf("%s: ignoring %d unexpected incoming messages", s.config.Name, len(incoming))
	}
	s.cursor = next
	s.sequence++
	return nil
}

// Sent returns how many numbers have been sent.
func (s *SequentialNumbers) Sent() uint32 { return s.sequence }
