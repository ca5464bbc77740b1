package sim

import "github.com/pkg/errors"

// Contract violations. Every error returned by the engine or a Connection
// wraps exactly one of these; test with errors.Is. Simulated network effects
// (loss, window exclusion, buffer eviction) are never errors.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidConfig       = errors.New("invalid transport config")
	ErrUnknownClient       = errors.New("unknown client")
	ErrNonForwardSend      = errors.New("send commitment does not move forward")
	ErrReceiveBeforeCommit = errors.New("receive beyond committed send time")
	ErrPublishNotPermitted = errors.New("client may not publish on channel")
	ErrLateDeclaration     = errors.New("publisher declared behind a subscriber")
)
