package sim

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pubsim/sim/trace"
)

// Server is the transport engine. It exclusively owns every registry,
// queue and random stream; clients reach it only through a Connection.
//
// All public methods serialize on one mutex so that the delivery bound is
// always computed from a consistent snapshot of every publisher's waterline.
type Server struct {
	mu sync.Mutex

	rng           *PartitionedRNG
	identities    *IdentityRegistry
	configs       *ConfigStore
	subscriptions *SubscriptionRegistry
	waterlines    *WaterlineTracker
	queues        map[SubscriptionKey]*DeliveryQueue
	trace         *trace.SimulationTrace
}

// NewServer creates an engine whose randomness derives from key.
func NewServer(key SimulationKey) *Server {
	return &Server{
		rng:           NewPartitionedRNG(key),
		identities:    NewIdentityRegistry(),
		configs:       NewConfigStore(),
		subscriptions: NewSubscriptionRegistry(),
		waterlines:    NewWaterlineTracker(),
		queues:        make(map[SubscriptionKey]*DeliveryQueue),
	}
}

// SetTrace attaches a decision trace. Nil disables tracing.
func (s *Server) SetTrace(st *trace.SimulationTrace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = st
}

// SetChannelConfig overrides the default transport config for channel.
func (s *Server) SetChannelConfig(channel ChannelName, cfg TransportConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.configs.Set(channel, cfg); err != nil {
		return err
	}
	logrus.Debugf("channel %q configured: %s", channel, cfg)
	return nil
}

// SetDefaultConfig replaces the config of channels without an override.
func (s *Server) SetDefaultConfig(cfg TransportConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs.SetDefault(cfg)
}

// ChannelConfig returns the resolved config of channel.
func (s *Server) ChannelConfig(channel ChannelName) TransportConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs.Resolve(channel)
}

// Register recognizes a new client. The client may request an id, else the
// next free one is assigned. The returned start time is the present of the
// simulation: the latest time any client has been delivered up to.
func (s *Server) Register(name string, requested *ClientID) (ClientID, SimTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.identities.Assign(name, requested)
	if err != nil {
		return 0, 0, err
	}
	start := s.waterlines.LatestReceipt()
	s.rng.ForClient(id)
	s.waterlines.Init(id, start)
	logrus.Infof("[t=%d] registered client %d %q", start, id, name)
	return id, start, nil
}

// Subscribe records or replaces subscriber's window on channel. The window's
// begin is clamped to after the time the subscriber has already been
// delivered through, so the subscription cannot produce a message older
// than one the subscriber has been told is complete. Returns the window in
// effect.
func (s *Server) Subscribe(subscriber ClientID, channel ChannelName, w Window) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.waterlines.Get(subscriber)
	if !ok {
		return Window{}, errors.Wrapf(ErrUnknownClient, "subscriber %d", subscriber)
	}
	earliest := addSaturating(wl.ReceivedThrough, 1)
	if w.Begin == nil || *w.Begin < earliest {
		w.Begin = &earliest
	}
	s.subscriptions.Subscribe(subscriber, channel, w)
	logrus.Debugf("client %d subscribed to %q window %s", subscriber, channel, w)
	return w, nil
}

// DeclarePublisher restricts channel to declared publishers and adds
// publisher to them. Refused if some subscriber of channel has already been
// delivered past the publisher's send waterline.
func (s *Server) DeclarePublisher(publisher ClientID, channel ChannelName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.waterlines.Get(publisher)
	if !ok {
		return errors.Wrapf(ErrUnknownClient, "publisher %d", publisher)
	}
	for _, sub := range s.subscriptions.SubscribersOf(channel) {
		subWl, _ := s.waterlines.Get(sub)
		if subWl.ReceivedThrough > wl.Send.SendTime {
			return errors.Wrapf(ErrLateDeclaration, "client %d at %d, subscriber %d delivered through %d",
				publisher, wl.Send.SendTime, sub, subWl.ReceivedThrough)
		}
	}
	s.subscriptions.DeclarePublisher(publisher, channel)
	return nil
}

// QueueMessage accepts a single stamped message from its sender and queues
// it for every subscriber that survives loss, latency and window checks. The
// sender's send waterline moves to the message's key.
func (s *Server) QueueMessage(msg *OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := []*OutgoingMessage{msg}
	if err := s.checkBatch(msg.Sender, msg.SendTime, batch); err != nil {
		return err
	}
	s.queueLocked(msg)
	return nil
}

// CommitSendsUntil queues a stamped batch from sender and then records that
// sender will send nothing before newTime. The batch is checked in full
// first and applied under one lock, so no receive observes part of it.
func (s *Server) CommitSendsUntil(sender ClientID, newTime SimTime, messages []*OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkBatch(sender, newTime, messages); err != nil {
		return err
	}
	for _, msg := range messages {
		s.queueLocked(msg)
	}
	return s.waterlines.CommitSendTime(sender, newTime)
}

func (s *Server) checkBatch(sender ClientID, newTime SimTime, messages []*OutgoingMessage) error {
	wl, ok := s.waterlines.Get(sender)
	if !ok {
		return errors.Wrapf(ErrUnknownClient, "sender %d", sender)
	}
	if newTime < wl.Send.SendTime {
		return errors.Wrapf(ErrNonForwardSend, "client %d: commit %d behind send waterline %d",
			sender, newTime, wl.Send.SendTime)
	}
	prev := wl.Send
	for _, msg := range messages {
		key := msg.Key()
		switch {
		case msg.Sender != sender:
			return errors.Wrapf(ErrInvalidArgument, "message %s stamped for client %d, sent by %d", key, msg.Sender, sender)
		case msg.SendTime >= MaxSimTime:
			return errors.Wrapf(ErrInvalidArgument, "client %d: send time must be below %d", sender, MaxSimTime)
		case msg.SendTime > newTime:
			return errors.Wrapf(ErrNonForwardSend, "client %d: message at %d after commit time %d", sender, msg.SendTime, newTime)
		case !s.subscriptions.MayPublish(sender, msg.Channel):
			return errors.Wrapf(ErrPublishNotPermitted, "client %d on %q", sender, msg.Channel)
		case !prev.Less(key):
			return errors.Wrapf(ErrNonForwardSend, "client %d: %s does not follow %s", sender, key, prev)
		}
		prev = key
	}
	return nil
}

// queueLocked applies one message that checkBatch accepted.
func (s *Server) queueLocked(msg *OutgoingMessage) {
	sender := msg.Sender
	if err := s.waterlines.AdvanceSend(sender, msg.Key()); err != nil {
		logrus.Panicf("checked message rejected: %v", err)
	}
	if s.trace.Enabled() {
		s.trace.RecordSend(trace.SendRecord{Channel: string(msg.Channel), Message: traceKey(msg.Key()), Bytes: len(msg.Payload)})
	}

	cfg := s.configs.Resolve(msg.Channel)
	if uniform(s.rng.ForClient(sender)) < cfg.SenderLossFraction {
		logrus.Debugf("[t=%d] %s on %q lost by sender", msg.SendTime, msg.Key(), msg.Channel)
		s.recordDecision(msg, 0, 0, trace.OutcomeSenderLoss)
		return
	}
	for _, receiver := range s.identities.IDs() {
		s.queueToReceiver(msg, cfg, receiver)
	}
}

func (s *Server) queueToReceiver(msg *OutgoingMessage, cfg TransportConfig, receiver ClientID) {
	window, subscribed := s.subscriptions.Window(receiver, msg.Channel)
	if !subscribed {
		return
	}
	rng := s.rng.ForClient(receiver)
	if uniform(rng) < cfg.ReceiverLossFraction {
		s.recordDecision(msg, receiver, 0, trace.OutcomeReceiverLoss)
		return
	}
	rxTime := addSaturating(msg.SendTime, sampleLatency(rng, cfg.MinLatency, cfg.MaxLatency))
	if !window.Contains(rxTime) {
		s.recordDecision(msg, receiver, rxTime, trace.OutcomeOutsideWindow)
		return
	}

	key := SubscriptionKey{Subscriber: receiver, Channel: msg.Channel}
	q, ok := s.queues[key]
	if !ok {
		q = NewDeliveryQueue()
		s.queues[key] = q
	}
	result, dropped := q.Admit(newIncomingMessage(receiver, rxTime, msg), cfg)
	switch result {
	case Discarded:
		s.recordDecision(msg, receiver, rxTime, trace.OutcomeDiscarded)
	case Refused:
		s.recordDecision(msg, receiver, rxTime, trace.OutcomeRefused)
	case Evicted:
		s.recordDecision(msg, receiver, rxTime, trace.OutcomeQueued)
		logrus.Debugf("client %d queue on %q full, evicted %s", receiver, msg.Channel, dropped.Key())
		s.recordDecision(dropped.message, receiver, dropped.ReceiptTime(), trace.OutcomeEvicted)
	default:
		s.recordDecision(msg, receiver, rxTime, trace.OutcomeQueued)
	}
}

// DequeueMessages delivers every message for receiver whose receipt time is
// at or before min(until, delivery bound), in RxKey order. Returns the time
// actually delivered through.
func (s *Server) DequeueMessages(receiver ClientID, until SimTime) (SimTime, []IncomingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.identities.Contains(receiver) {
		return 0, nil, errors.Wrapf(ErrUnknownClient, "receiver %d", receiver)
	}
	bound := s.waterlines.DeliveryBound(receiver, s.subscriptions, s.identities.IDs())
	actual := min(bound, until)

	var result []IncomingMessage
	for _, channel := range s.subscriptions.ChannelsOf(receiver) {
		if q, ok := s.queues[SubscriptionKey{Subscriber: receiver, Channel: channel}]; ok {
			result = append(result, q.PopUntil(actual)...)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key().Less(result[j].Key()) })

	var last *RxKey
	if len(result) > 0 {
		k := result[len(result)-1].Key()
		last = &k
	}
	s.waterlines.AdvanceReceive(receiver, last, actual)
	if actual < until {
		logrus.Debugf("client %d receive clamped from %d to %d", receiver, until, actual)
	}
	if s.trace.Enabled() {
		for _, m := range result {
			s.trace.RecordDelivery(trace.DeliveryRecord{
				Receiver:    int64(receiver),
				Until:       int64(actual),
				Channel:     string(m.Channel()),
				Message:     traceKey(m.message.Key()),
				ReceiptTime: int64(m.ReceiptTime()),
			})
		}
	}
	return actual, result, nil
}

// Waterlines returns a snapshot of id's waterlines.
func (s *Server) Waterlines(id ClientID) (Waterlines, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waterlines.Get(id)
}

// ClientName returns the display name id registered with.
func (s *Server) ClientName(id ClientID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identities.Name(id)
}

// Pending returns the number of queued, undelivered messages for receiver.
func (s *Server) Pending(receiver ClientID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, q := range s.queues {
		if key.Subscriber == receiver {
			n += q.Len()
		}
	}
	return n
}

func (s *Server) recordDecision(msg *OutgoingMessage, receiver ClientID, rxTime SimTime, outcome trace.Outcome) {
	if !s.trace.Enabled() {
		return
	}
	s.trace.RecordDecision(trace.DecisionRecord{
		Channel:     string(msg.Channel),
		Message:     traceKey(msg.Key()),
		Receiver:    int64(receiver),
		ReceiptTime: int64(rxTime),
		Outcome:     outcome,
	})
}

func traceKey(k TxKey) trace.MessageKey {
	return trace.MessageKey{SendTime: int64(k.SendTime), Sender: int64(k.Sender), Subsequence: int64(k.Subsequence)}
}

// addSaturating returns t+d, or MaxSimTime when that would overflow.
func addSaturating(t, d SimTime) SimTime {
	if t > MaxSimTime-d {
		return MaxSimTime
	}
	return t + d
}
