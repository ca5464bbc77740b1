package scenario

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/pubsim/sim"
	"github.com/inference-sim/pubsim/sim/trace"
)

func TestBuild_LateSubscriberScenario(t *testing.T) {
	// GIVEN the late subscriber scenario
	spec, err := Load(filepath.Join("testdata", "late_subscriber.yaml"))
	require.NoError(t, err)
	s, err := Build(spec)
	require.NoError(t, err)

	// WHEN run for its configured steps
	require.NoError(t, s.Run(spec.Steps))

	// THEN the recorder joined at 10 and received 10..44 in order
	assert.Equal(t, 50, s.Steps())
	conn, ok := s.Connection("late")
	require.True(t, ok)
	assert.Equal(t, sim.SimTime(10), conn.StartTime())
	require.Len(t, s.Recorders(), 1)
	var got []uint32
	for _, m := range s.Recorders()[0].Received() {
		got = append(got, binary.BigEndian.Uint32(m.Payload()))
	}
	var want []uint32
	for n := uint32(10); n <= 44; n++ {
		want = append(want, n)
	}
	assert.Equal(t, want, got)

	// AND the trace saw every send
	require.NotNil(t, s.Trace)
	summary := trace.Summarize(s.Trace)
	assert.Equal(t, 50, summary.TotalSends)
	assert.Equal(t, len(want), summary.Delivered)
}

func TestBuild_ChannelOverridesApplied(t *testing.T) {
	spec, err := Load(filepath.Join("testdata", "late_subscriber.yaml"))
	require.NoError(t, err)
	s, err := Build(spec)
	require.NoError(t, err)

	lossy := s.Server.ChannelConfig("lossy")
	assert.Equal(t, sim.SimTime(5), lossy.MinLatency)
	assert.Equal(t, sim.SimTime(6), lossy.MaxLatency)
	assert.Equal(t, 0.5, lossy.ReceiverLossFraction)
	assert.Equal(t, sim.PolicyQueueNewest, lossy.BufferPolicy)
	assert.Equal(t, 4, lossy.QueueSize)
	assert.Equal(t, sim.SimTime(6), s.Server.ChannelConfig("other").MaxLatency)
}

func TestBuild_InvalidSpecRejected(t *testing.T) {
	_, err := Build(&Spec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestBuild_ClientsNotConnectedBeforeRun(t *testing.T) {
	spec, err := Load(filepath.Join("testdata", "late_subscriber.yaml"))
	require.NoError(t, err)
	s, err := Build(spec)
	require.NoError(t, err)

	_, ok := s.Connection("seqnum_sender")
	assert.False(t, ok)
	require.NoError(t, s.Run(1))
	_, ok = s.Connection("seqnum_sender")
	assert.True(t, ok)
	_, ok = s.Connection("late")
	assert.False(t, ok)
}

func TestBuild_UndeclaredPublisherFails(t *testing.T) {
	// GIVEN a channel declared by one sequential client and used by another
	spec := &Spec{
		Seed: 1,
		Clients: []ClientSpec{
			{Kind: KindSequential, Name: "owner", Channel: "c", Declare: true},
			{Kind: KindSequential, Name: "intruder", Channel: "c"},
		},
	}
	s, err := Build(spec)
	require.NoError(t, err)

	// WHEN run
	err = s.Run(1)

	// THEN the intruder's first send is refused
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrPublishNotPermitted))
}

func TestBuild_SameSeedSameDeliveries(t *testing.T) {
	run := func() []sim.RxKey {
		spec := &Spec{
			Seed: 99,
			Default: &ChannelSpec{
				ReceiverLoss: func() *float64 { v := 0.2; return &v }(),
			},
			Clients: []ClientSpec{
				{Kind: KindSequential, Name: "a", Channel: "x"},
				{Kind: KindSequential, Name: "b", Channel: "x"},
				{Kind: KindRecorder, Name: "r", Subscribe: []SubscriptionSpec{{Channel: "x"}}},
			},
		}
		s, err := Build(spec)
		require.NoError(t, err)
		require.NoError(t, s.Run(100))
		var keys []sim.RxKey
		for _, m := range s.Recorders()[0].Received() {
			keys = append(keys, m.Key())
		}
		return keys
	}
	first := run()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run())
}
