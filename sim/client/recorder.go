package client

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pubsim/sim"
)

// Step is what one Recorder.Act observed.
type Step struct {
	Reached  sim.SimTime
	Messages []sim.IncomingMessage
}

// Recorder is a subscriber that sends nothing and keeps every message it is
// delivered. Each Act commits one more time unit and receives up to it.
type Recorder struct {
	name   string
	conn   *sim.Connection
	cursor sim.SimTime
	steps  []Step
}

// NewRecorder creates a Recorder over conn. Subscriptions are made on conn
// by the caller.
func NewRecorder(name string, conn *sim.Connection) *Recorder {
	return &Recorder{name: name, conn: conn, cursor: conn.StartTime()}
}

// Act advances the recorder by one time unit.
func (r *Recorder) Act() error {
	desired := r.cursor + 1
	reached, msgs, err := r.conn.Advance(desired)
	if err != nil {
		return errors.Wrapf(err, "%s: advancing to %d", r.name, desired)
	}
	r.cursor = desired
	r.steps = append(r.steps, Step{Reached: reached, Messages: msgs})
	if len(msgs) > 0 {
		logrus.Debugf("[t=%d] %s received %d messages", reached, r.name, len(msgs))
	}
	return nil
}

// Steps returns the observation of every Act so far.
func (r *Recorder) Steps() []Step { return r.steps }

// Received returns every delivered message in delivery order.
func (r *Recorder) Received() []sim.IncomingMessage {
	var all []sim.IncomingMessage
	for _, s := range r.steps {
		all = append(all, s.Messages...)
	}
	return all
}

// ID returns the recorder's client id.
func (r *Recorder) ID() sim.ClientID { return r.conn.ID() }

// Name returns the recorder's name.
func (r *Recorder) Name() string { return r.name }
