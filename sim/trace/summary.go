package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSends int
	// ReceiverRolls counts per-receiver decisions after surviving sender loss.
	ReceiverRolls int
	Delivered     int
	Outcomes      map[Outcome]int
	// SenderLossRate is sender-loss / sends.
	SenderLossRate float64
	// ReceiverLossRate is receiver-loss / receiver rolls.
	ReceiverLossRate float64
	// PerReceiver maps receiver id to delivered count.
	PerReceiver map[int64]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		Outcomes:    make(map[Outcome]int),
		PerReceiver: make(map[int64]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalSends = len(st.Sends)
	for _, d := range st.Decisions {
		summary.Outcomes[d.Outcome]++
		// Evictions are a second record about an already-rolled message.
		if d.Outcome != OutcomeSenderLoss && d.Outcome != OutcomeEvicted {
			summary.ReceiverRolls++
		}
	}
	for _, d := range st.Deliveries {
		summary.Delivered++
		summary.PerReceiver[d.Receiver]++
	}

	if summary.TotalSends > 0 {
		summary.SenderLossRate = float64(summary.Outcomes[OutcomeSenderLoss]) / float64(summary.TotalSends)
	}
	if summary.ReceiverRolls > 0 {
		summary.ReceiverLossRate = float64(summary.Outcomes[OutcomeReceiverLoss]) / float64(summary.ReceiverRolls)
	}
	return summary
}
