package sim

import (
	"fmt"
	"math"
)

// ClientID is a unique numeric client identifier. Values below
// MinimumClientID are reserved for server-directed addressing.
type ClientID int64

// MinimumClientID is the lowest ID that can be assigned to a client.
const MinimumClientID ClientID = 2

// SimTime is a logical time that never decreases across the communications
// of the whole system. No unit is implied.
type SimTime int64

const (
	// MinimumSimTime is the lowest time that can be mentioned in any context.
	MinimumSimTime SimTime = 0
	// MaxSimTime stands for "no bound".
	MaxSimTime SimTime = math.MaxInt64
)

// ChannelName identifies a pub/sub topic.
type ChannelName string

// SubsequenceNumber orders messages one sender sends at the same SimTime.
type SubsequenceNumber int64

// TxKey is the total order of a message at its point of sending.
type TxKey struct {
	SendTime    SimTime
	Sender      ClientID
	Subsequence SubsequenceNumber
}

// Compare returns -1, 0 or 1 comparing k to other lexicographically.
func (k TxKey) Compare(other TxKey) int {
	switch {
	case k.SendTime != other.SendTime:
		return cmpInt64(int64(k.SendTime), int64(other.SendTime))
	case k.Sender != other.Sender:
		return cmpInt64(int64(k.Sender), int64(other.Sender))
	default:
		return cmpInt64(int64(k.Subsequence), int64(other.Subsequence))
	}
}

// Less reports whether k sorts strictly before other.
func (k TxKey) Less(other TxKey) bool { return k.Compare(other) < 0 }

func (k TxKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.SendTime, k.Sender, k.Subsequence)
}

// RxKey is the total order of a message at its point of delivery.
// Receipt time dominates; the remaining fields are the message's TxKey.
type RxKey struct {
	ReceiptTime SimTime
	TxKey
}

// Compare returns -1, 0 or 1 comparing k to other lexicographically.
func (k RxKey) Compare(other RxKey) int {
	if k.ReceiptTime != other.ReceiptTime {
		return cmpInt64(int64(k.ReceiptTime), int64(other.ReceiptTime))
	}
	return k.TxKey.Compare(other.TxKey)
}

// Less reports whether k sorts strictly before other.
func (k RxKey) Less(other RxKey) bool { return k.Compare(other) < 0 }

func (k RxKey) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", k.ReceiptTime, k.SendTime, k.Sender, k.Subsequence)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Window is a possibly unbounded, inclusive interval of SimTime during which
// a subscription is active. A nil bound is unbounded on that side.
type Window struct {
	Begin *SimTime
	End   *SimTime
}

// Always is the unbounded window.
var Always = Window{}

// Between returns the window [begin, end].
func Between(begin, end SimTime) Window {
	return Window{Begin: &begin, End: &end}
}

// From returns the window [begin, ∞).
func From(begin SimTime) Window {
	return Window{Begin: &begin}
}

// Until returns the window (-∞, end].
func Until(end SimTime) Window {
	return Window{End: &end}
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t SimTime) bool {
	if w.Begin != nil && t < *w.Begin {
		return false
	}
	if w.End != nil && t > *w.End {
		return false
	}
	return true
}

func (w Window) String() string {
	begin, end := "-inf", "+inf"
	if w.Begin != nil {
		begin = fmt.Sprint(int64(*w.Begin))
	}
	if w.End != nil {
		end = fmt.Sprint(int64(*w.End))
	}
	return "[" + begin + ", " + end + "]"
}

// SubscriptionKey scopes subscription configuration and delivery queues.
type SubscriptionKey struct {
	Subscriber ClientID
	Channel    ChannelName
}

// OutgoingMessage is a message at its point of sending. Sender and
// Subsequence are stamped by the Connection when the message is committed;
// once queued the message is shared by every receiver and must not change.
type OutgoingMessage struct {
	SendTime    SimTime
	Channel     ChannelName
	Payload     []byte
	Sender      ClientID
	Subsequence SubsequenceNumber
}

// NewOutgoingMessage creates an unstamped message.
func NewOutgoingMessage(sendTime SimTime, channel ChannelName, payload []byte) *OutgoingMessage {
	return &OutgoingMessage{SendTime: sendTime, Channel: channel, Payload: payload}
}

// Key returns the message's send-order key.
func (m *OutgoingMessage) Key() TxKey {
	return TxKey{SendTime: m.SendTime, Sender: m.Sender, Subsequence: m.Subsequence}
}

// IncomingMessage is a read-only view of a delivered message: the receiver,
// its receipt time, and the shared outgoing message.
type IncomingMessage struct {
	receiver    ClientID
	receiptTime SimTime
	message     *OutgoingMessage
}

func newIncomingMessage(receiver ClientID, receiptTime SimTime, msg *OutgoingMessage) IncomingMessage {
	return IncomingMessage{receiver: receiver, receiptTime: receiptTime, message: msg}
}

func (m IncomingMessage) Receiver() ClientID { return m.receiver }
func (m IncomingMessage) ReceiptTime() SimTime { return m.receiptTime }
func (m IncomingMessage) SendTime() SimTime { return m.message.SendTime }
func (m IncomingMessage) Channel() ChannelName { return m.message.Channel }
func (m IncomingMessage) Sender() ClientID { return m.message.Sender }
func (m IncomingMessage) Subsequence() SubsequenceNumber { return m.message.Subsequence }

// Payload returns the shared payload bytes. Callers must not modify them.
func (m IncomingMessage) Payload() []byte { return m.message.Payload }

// Key returns the message's delivery-order key.
func (m IncomingMessage) Key() RxKey {
	return RxKey{ReceiptTime: m.receiptTime, TxKey: m.message.Key()}
}

func (m IncomingMessage) String() string {
	return fmt.Sprintf("IncomingMessage{to=%d, key=%s, channel=%q, %d bytes}",
		m.receiver, m.Key(), m.message.Channel, len(m.message.Payload))
}
