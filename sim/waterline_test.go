package sim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaterlineTracker_AdvanceSend_StrictlyForward(t *testing.T) {
	w := NewWaterlineTracker()
	w.Init(2, 10)

	tests := []struct {
		name string
		key  TxKey
		ok   bool
	}{
		{"same as start", TxKey{SendTime: 10, Sender: 2}, false},
		{"tie broken by subsequence", TxKey{SendTime: 10, Sender: 2, Subsequence: 1}, true},
		{"later time", TxKey{SendTime: 12, Sender: 2}, true},
		{"repeat", TxKey{SendTime: 12, Sender: 2}, false},
		{"earlier time", TxKey{SendTime: 11, Sender: 2, Subsequence: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.AdvanceSend(2, tt.key)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrNonForwardSend), "got %v", err)
			}
		})
	}
	wl, _ := w.Get(2)
	assert.Equal(t, TxKey{SendTime: 12, Sender: 2}, wl.Send)
}

func TestWaterlineTracker_CommitSendTime(t *testing.T) {
	w := NewWaterlineTracker()
	w.Init(2, 0)
	require.NoError(t, w.AdvanceSend(2, TxKey{SendTime: 4, Sender: 2, Subsequence: 3}))

	// Equal time keeps the subsequence already recorded.
	require.NoError(t, w.CommitSendTime(2, 4))
	wl, _ := w.Get(2)
	assert.Equal(t, SubsequenceNumber(3), wl.Send.Subsequence)

	require.NoError(t, w.CommitSendTime(2, 9))
	assert.Equal(t, SimTime(9), w.EarliestNextSend(2))

	assert.True(t, errors.Is(w.CommitSendTime(2, 8), ErrNonForwardSend))
	assert.True(t, errors.Is(w.CommitSendTime(7, 8), ErrUnknownClient))
}

func TestWaterlineTracker_AdvanceReceive_NeverBackward(t *testing.T) {
	w := NewWaterlineTracker()
	w.Init(3, 0)
	k := RxKey{ReceiptTime: 8, TxKey: TxKey{SendTime: 2, Sender: 2}}
	w.AdvanceReceive(3, &k, 9)

	older := RxKey{ReceiptTime: 6, TxKey: TxKey{SendTime: 1, Sender: 2}}
	w.AdvanceReceive(3, &older, 7)
	w.AdvanceReceive(3, nil, 5)

	wl, _ := w.Get(3)
	assert.Equal(t, k, wl.Receive)
	assert.Equal(t, SimTime(9), wl.ReceivedThrough)
}

func TestWaterlineTracker_LatestReceipt(t *testing.T) {
	w := NewWaterlineTracker()
	assert.Equal(t, MinimumSimTime, w.LatestReceipt())

	w.Init(2, 0)
	w.Init(3, 0)
	k := RxKey{ReceiptTime: 8}
	w.AdvanceReceive(2, &k, 8)
	w.AdvanceReceive(3, nil, 15)
	assert.Equal(t, SimTime(15), w.LatestReceipt())
}

func TestWaterlineTracker_DeliveryBound(t *testing.T) {
	// GIVEN three clients with different send commitments
	w := NewWaterlineTracker()
	subs := NewSubscriptionRegistry()
	for id, t0 := range map[ClientID]SimTime{2: 20, 3: 12, 4: 30} {
		w.Init(id, t0)
	}
	all := []ClientID{2, 3, 4}

	// WHEN the receiver has no subscriptions THEN the bound is unlimited
	assert.Equal(t, MaxSimTime, w.DeliveryBound(4, subs, all))

	// WHEN it subscribes to an open channel THEN the slowest client bounds it
	subs.Subscribe(4, "a", Always)
	assert.Equal(t, SimTime(12), w.DeliveryBound(4, subs, all))

	// WHEN channel "a" is restricted to client 2 THEN client 3 no longer counts
	subs.DeclarePublisher(2, "a")
	assert.Equal(t, SimTime(20), w.DeliveryBound(4, subs, all))

	// WHEN it also subscribes to an open channel THEN everyone counts again
	subs.Subscribe(4, "b", Always)
	assert.Equal(t, SimTime(12), w.DeliveryBound(4, subs, all))

	// AND a channel with no permitted publisher adds no constraint
	subs2 := NewSubscriptionRegistry()
	subs2.DeclarePublisher(9, "empty")
	subs2.Subscribe(4, "empty", Always)
	assert.Equal(t, MaxSimTime, w.DeliveryBound(4, subs2, all))
}
