// Package client provides reference participants for the transport engine
// and a Driver that steps them in a fixed order.
package client

import (
	"encoding/binary"

	"github.com/inference-sim/pubsim/sim"
)

// Client is a simulation participant. Each Act advances it by one step
// through its Connection.
type Client interface {
	Act() error
}

// EncodeSequence returns the 4-byte big-endian payload for n.
func EncodeSequence(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

// DecodeSequence reads a payload written by EncodeSequence. ok is false if
// the payload is not 4 bytes long.
func DecodeSequence(m sim.IncomingMessage) (n uint32, ok bool) {
	p := m.Payload()
	if len(p) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(p), true
}
