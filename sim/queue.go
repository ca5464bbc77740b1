// Implements the DeliveryQueue, which holds a subscriber's pending incoming
// messages on one channel, ordered by RxKey.

package sim

import (
	"container/heap"
	"fmt"
	"strings"
)

// AdmitResult is the outcome of offering a message to a DeliveryQueue.
type AdmitResult int

const (
	// Queued means the message was inserted and nothing was dropped.
	Queued AdmitResult = iota
	// Discarded means the policy never retains messages.
	Discarded
	// Refused means the queue was full and the offered message was dropped.
	Refused
	// Evicted means the message was inserted and the lowest-keyed entry was
	// dropped to make room. The dropped entry may be the offered message.
	Evicted
)

func (r AdmitResult) String() string {
	switch r {
	case Queued:
		return "queued"
	case Discarded:
		return "discarded"
	case Refused:
		return "refused"
	case Evicted:
		return "evicted"
	default:
		return fmt.Sprintf("AdmitResult(%d)", int(r))
	}
}

// DeliveryQueue is a priority queue of incoming messages with deterministic
// ordering by RxKey. RxKeys are unique per message, so ties cannot occur.
type DeliveryQueue struct {
	items []IncomingMessage
}

// NewDeliveryQueue creates an empty queue.
func NewDeliveryQueue() *DeliveryQueue {
	q := &DeliveryQueue{items: make([]IncomingMessage, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *DeliveryQueue) Len() int { return len(q.items) }

// Less implements heap.Interface
func (q *DeliveryQueue) Less(i, j int) bool {
	return q.items[i].Key().Less(q.items[j].Key())
}

// Swap implements heap.Interface
func (q *DeliveryQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

// Push implements heap.Interface
func (q *DeliveryQueue) Push(x interface{}) {
	q.items = append(q.items, x.(IncomingMessage))
}

// Pop implements heap.Interface
func (q *DeliveryQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[0 : n-1]
	return item
}

// Admit offers msg under cfg's buffer policy. When an entry is dropped to
// make room, it is returned as dropped.
func (q *DeliveryQueue) Admit(msg IncomingMessage, cfg TransportConfig) (result AdmitResult, dropped *IncomingMessage) {
	capacity, bounded := cfg.Capacity()
	switch cfg.BufferPolicy {
	case PolicyDiscard:
		return Discarded, nil
	case PolicyQueueOldest:
		if q.Len() >= capacity {
			return Refused, nil
		}
		heap.Push(q, msg)
		return Queued, nil
	case PolicyMailbox, PolicyQueueNewest:
		heap.Push(q, msg)
		if bounded && q.Len() > capacity {
			evicted := heap.Pop(q).(IncomingMessage)
			return Evicted, &evicted
		}
		return Queued, nil
	default:
		heap.Push(q, msg)
		return Queued, nil
	}
}

// PopUntil removes and returns, in RxKey order, every entry whose receipt
// time is at or before until.
func (q *DeliveryQueue) PopUntil(until SimTime) []IncomingMessage {
	var out []IncomingMessage
	for q.Len() > 0 && q.items[0].ReceiptTime() <= until {
		out = append(out, heap.Pop(q).(IncomingMessage))
	}
	return out
}

func (q *DeliveryQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, item := range q.items {
		sb.WriteString(item.Key().String())
		if i < len(q.items)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
