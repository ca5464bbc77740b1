package sim

import (
	"github.com/pkg/errors"
)

// Connection is one client's handle on the Server. It enforces causal send
// ordering and stamps identity and tie-break metadata on outgoing messages.
// A Connection holds only its id and cached local times, never engine state.
// It must be used from one goroutine.
type Connection struct {
	name   string
	server *Server
	id     ClientID

	startTime     SimTime
	committedTime SimTime // nothing will be sent before this
	// subsequence of the latest key at committedTime; the commit itself
	// holds 0 when no message was sent at that time.
	subsequence SubsequenceNumber
}

// Connect registers a client named name with server, optionally requesting
// a specific id.
func Connect(server *Server, name string, requested *ClientID) (*Connection, error) {
	id, start, err := server.Register(name, requested)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting %q", name)
	}
	return &Connection{
		name:          name,
		server:        server,
		id:            id,
		startTime:     start,
		committedTime: start,
	}, nil
}

// ID returns the assigned client id.
func (c *Connection) ID() ClientID { return c.id }

// Name returns the display name the client registered with.
func (c *Connection) Name() string { return c.name }

// StartTime returns the time the client joined the simulation.
func (c *Connection) StartTime() SimTime { return c.startTime }

// CommittedTime returns the time through which sends are committed.
func (c *Connection) CommittedTime() SimTime { return c.committedTime }

// CommitSendsUntil declares that messages are all the messages this client
// sends up through newTime, and that it will send nothing before newTime
// afterwards. Each message's sender and subsequence number are overwritten.
// Message times must be non-decreasing, not before the previous commitment
// and not after newTime. A message at the same time as the key before it
// takes the next subsequence number; a later time restarts at 0.
//
// The batch is checked as a whole before anything is queued: on error no
// message is sent and the commitment is unchanged.
func (c *Connection) CommitSendsUntil(newTime SimTime, messages ...*OutgoingMessage) error {
	if newTime <= c.committedTime {
		return errors.Wrapf(ErrNonForwardSend, "client %d: commit to %d, already committed through %d",
			c.id, newTime, c.committedTime)
	}
	last, subsequence := c.committedTime, c.subsequence
	stamps := make([]SubsequenceNumber, len(messages))
	for i, msg := range messages {
		switch {
		case msg.SendTime > newTime:
			return errors.Wrapf(ErrNonForwardSend, "client %d: message at %d after commit time %d",
				c.id, msg.SendTime, newTime)
		case msg.SendTime == last:
			subsequence++
		case msg.SendTime > last:
			subsequence = 0
		default:
			return errors.Wrapf(ErrNonForwardSend, "client %d: message at %d before %d", c.id, msg.SendTime, last)
		}
		stamps[i] = subsequence
		last = msg.SendTime
	}
	for i, msg := range messages {
		msg.Sender = c.id
		msg.Subsequence = stamps[i]
	}
	if err := c.server.CommitSendsUntil(c.id, newTime, messages); err != nil {
		return err
	}
	if last < newTime {
		subsequence = 0
	}
	c.committedTime, c.subsequence = newTime, subsequence
	return nil
}

// TryReceiveUntil asks to advance this client's receive time to newTime,
// which must not pass its send commitment. Returns the time actually reached
// (at most newTime) and every message received up to it, in receipt order.
func (c *Connection) TryReceiveUntil(newTime SimTime) (SimTime, []IncomingMessage, error) {
	if newTime > c.committedTime {
		return 0, nil, errors.Wrapf(ErrReceiveBeforeCommit, "client %d: receive until %d, sends committed through %d",
			c.id, newTime, c.committedTime)
	}
	return c.server.DequeueMessages(c.id, newTime)
}

// Send commits a single message at its own send time.
func (c *Connection) Send(msg *OutgoingMessage) error {
	return c.CommitSendsUntil(msg.SendTime, msg)
}

// Advance commits no further sends through desired and receives up to it.
func (c *Connection) Advance(desired SimTime) (SimTime, []IncomingMessage, error) {
	if err := c.CommitSendsUntil(desired); err != nil {
		return 0, nil, err
	}
	return c.TryReceiveUntil(desired)
}

// Subscribe subscribes this client to channel during w. Returns the window
// in effect.
func (c *Connection) Subscribe(channel ChannelName, w Window) (Window, error) {
	return c.server.Subscribe(c.id, channel, w)
}

// DeclarePublisher declares this client a publisher on channel.
func (c *Connection) DeclarePublisher(channel ChannelName) error {
	return c.server.DeclarePublisher(c.id, channel)
}
