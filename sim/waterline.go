package sim

import "github.com/pkg/errors"

// Waterlines is one client's delivery bookkeeping.
type Waterlines struct {
	Send            TxKey   // last committed send
	Receive         RxKey   // last delivered message
	ReceivedThrough SimTime // highest actualUntil returned to the client
}

// WaterlineTracker holds the waterlines of every registered client and
// computes delivery-safety bounds from them.
type WaterlineTracker struct {
	clients map[ClientID]*Waterlines
}

// NewWaterlineTracker creates an empty tracker.
func NewWaterlineTracker() *WaterlineTracker {
	return &WaterlineTracker{clients: make(map[ClientID]*Waterlines)}
}

// Init sets every waterline of id to start.
func (w *WaterlineTracker) Init(id ClientID, start SimTime) {
	w.clients[id] = &Waterlines{
		Send:            TxKey{SendTime: start, Sender: id},
		Receive:         RxKey{ReceiptTime: start},
		ReceivedThrough: start,
	}
}

// Get returns a copy of id's waterlines.
func (w *WaterlineTracker) Get(id ClientID) (Waterlines, bool) {
	wl, ok := w.clients[id]
	if !ok {
		return Waterlines{}, false
	}
	return *wl, true
}

// AdvanceSend moves id's send waterline to key, which must sort strictly
// after the current one.
func (w *WaterlineTracker) AdvanceSend(id ClientID, key TxKey) error {
	wl, ok := w.clients[id]
	if !ok {
		return errors.Wrapf(ErrUnknownClient, "client %d", id)
	}
	if !wl.Send.Less(key) {
		return errors.Wrapf(ErrNonForwardSend, "client %d: %s does not follow %s", id, key, wl.Send)
	}
	wl.Send = key
	return nil
}

// CommitSendTime records that id will send nothing at or before t. A t
// equal to the current send time is a no-op; an earlier t is an error.
func (w *WaterlineTracker) CommitSendTime(id ClientID, t SimTime) error {
	wl, ok := w.clients[id]
	if !ok {
		return errors.Wrapf(ErrUnknownClient, "client %d", id)
	}
	switch {
	case t == wl.Send.SendTime:
		return nil
	case t < wl.Send.SendTime:
		return errors.Wrapf(ErrNonForwardSend, "client %d: commit %d behind send waterline %d", id, t, wl.Send.SendTime)
	}
	wl.Send = TxKey{SendTime: t, Sender: id}
	return nil
}

// AdvanceReceive moves id's receive waterline to last if that is forward,
// and its received-through time to through if that is forward.
func (w *WaterlineTracker) AdvanceReceive(id ClientID, last *RxKey, through SimTime) {
	wl := w.clients[id]
	if last != nil && wl.Receive.Less(*last) {
		wl.Receive = *last
	}
	if through > wl.ReceivedThrough {
		wl.ReceivedThrough = through
	}
}

// LatestReceipt returns the present of the simulation: the highest receive
// waterline or received-through time of any client, MinimumSimTime if none.
func (w *WaterlineTracker) LatestReceipt() SimTime {
	latest := MinimumSimTime
	for _, wl := range w.clients {
		latest = max(latest, wl.Receive.ReceiptTime, wl.ReceivedThrough)
	}
	return latest
}

// EarliestNextSend returns the lowest time at which id could still cause a
// message to be queued: its send waterline time. Everything up to and
// including it has been committed.
func (w *WaterlineTracker) EarliestNextSend(id ClientID) SimTime {
	return w.clients[id].Send.SendTime
}

// DeliveryBound returns the latest time up to which receiver can be served
// without risk that a message from some publisher is still unsent. It is
// the minimum earliest-next-send over every publisher permitted on any of
// the receiver's channels; MaxSimTime if there is none.
func (w *WaterlineTracker) DeliveryBound(receiver ClientID, subs *SubscriptionRegistry, publishers []ClientID) SimTime {
	bound := MaxSimTime
	for _, channel := range subs.ChannelsOf(receiver) {
		for _, publisher := range publishers {
			if subs.MayPublish(publisher, channel) {
				bound = min(bound, w.EarliestNextSend(publisher))
			}
		}
	}
	return bound
}
