// Package trace provides decision-trace recording for transport analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// Outcome is what happened to one message for one receiver.
type Outcome string

const (
	OutcomeQueued        Outcome = "queued"
	OutcomeSenderLoss    Outcome = "sender-loss"
	OutcomeReceiverLoss  Outcome = "receiver-loss"
	OutcomeOutsideWindow Outcome = "outside-window"
	OutcomeDiscarded     Outcome = "discarded"
	OutcomeRefused       Outcome = "refused"
	OutcomeEvicted       Outcome = "evicted"
)

// MessageKey identifies a message by its send-order key.
type MessageKey struct {
	SendTime    int64 `yaml:"send_time"`
	Sender      int64 `yaml:"sender"`
	Subsequence int64 `yaml:"subsequence"`
}

// SendRecord captures a message accepted by the engine, before loss.
type SendRecord struct {
	Channel string     `yaml:"channel"`
	Message MessageKey `yaml:"message"`
	Bytes   int        `yaml:"bytes"`
}

// DecisionRecord captures a transport decision about one message.
// Receiver is 0 and ReceiptTime is unset for sender-side loss.
type DecisionRecord struct {
	Channel     string     `yaml:"channel"`
	Message     MessageKey `yaml:"message"`
	Receiver    int64      `yaml:"receiver,omitempty"`
	ReceiptTime int64      `yaml:"receipt_time,omitempty"`
	Outcome     Outcome    `yaml:"outcome"`
}

// DeliveryRecord captures a message handed to its receiver. Until is the
// time the delivering dequeue actually reached.
type DeliveryRecord struct {
	Receiver    int64      `yaml:"receiver"`
	Until       int64      `yaml:"until"`
	Channel     string     `yaml:"channel"`
	Message     MessageKey `yaml:"message"`
	ReceiptTime int64      `yaml:"receipt_time"`
}
