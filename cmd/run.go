package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pubsim/sim/client"
	"github.com/inference-sim/pubsim/sim/scenario"
	"github.com/inference-sim/pubsim/sim/trace"
)

var (
	titleColor = color.New(color.FgHiCyan, color.Bold)
	fieldColor = color.New(color.FgHiMagenta)
	dataColor  = color.New(color.FgHiWhite)
	warnColor  = color.New(color.FgHiYellow)
)

type runOptions struct {
	scenarioPath string
	seed         *int64
	steps        int
	traceOut     string
}

// runScenario loads, builds and runs a scenario, printing deliveries to out.
func runScenario(out io.Writer, opts runOptions) error {
	spec, err := scenario.Load(opts.scenarioPath)
	if err != nil {
		return err
	}
	if opts.seed != nil {
		spec.Seed = *opts.seed
	}
	if opts.steps > 0 {
		spec.Steps = opts.steps
	}
	if opts.traceOut != "" && spec.Trace == "" {
		spec.Trace = string(trace.TraceLevelDecisions)
	}

	running, err := scenario.Build(spec)
	if err != nil {
		return err
	}
	logrus.Infof("Starting scenario %s: seed=%d steps=%d clients=%d",
		opts.scenarioPath, spec.Seed, spec.Steps, len(spec.Clients))
	if err := running.Run(spec.Steps); err != nil {
		return errors.Wrap(err, "running scenario")
	}

	for _, rec := range running.Recorders() {
		printRecorder(out, rec, running.Server.Pending(rec.ID()))
	}
	if running.Trace != nil {
		printSummary(out, trace.Summarize(running.Trace))
	}
	if opts.traceOut != "" && running.Trace != nil {
		if err := writeTrace(opts.traceOut, running.Trace); err != nil {
			return err
		}
	}
	return nil
}

func printRecorder(out io.Writer, rec *client.Recorder, pending int) {
	steps := rec.Steps()
	reached := "never stepped"
	if len(steps) > 0 {
		reached = fmt.Sprintf("reached t=%d", steps[len(steps)-1].Reached)
	}
	titleColor.Fprintf(out, "=== %s ===\n", rec.Name())
	fmt.Fprintf(out, "%s %d messages, %s\n", fieldColor.Sprint("received:"), len(rec.Received()), reached)
	fmt.Fprintf(out, "%s %d still queued\n", fieldColor.Sprint("pending:"), pending)
	for _, m := range rec.Received() {
		payload := fmt.Sprintf("%d bytes", len(m.Payload()))
		if n, ok := client.DecodeSequence(m); ok {
			payload = fmt.Sprintf("seq=%d", n)
		}
		fmt.Fprintf(out, "  t=%-6d %s from=%d sent=%d.%d %s\n",
			m.ReceiptTime(), fieldColor.Sprint(m.Channel()), m.Sender(), m.SendTime(), m.Subsequence(),
			dataColor.Sprint(payload))
	}
}

func printSummary(out io.Writer, s *trace.TraceSummary) {
	titleColor.Fprintln(out, "=== Transport Summary ===")
	fmt.Fprintf(out, "%s %d\n", fieldColor.Sprint("sends:"), s.TotalSends)
	fmt.Fprintf(out, "%s %d\n", fieldColor.Sprint("delivered:"), s.Delivered)
	fmt.Fprintf(out, "%s %.3f\n", fieldColor.Sprint("sender loss rate:"), s.SenderLossRate)
	fmt.Fprintf(out, "%s %.3f\n", fieldColor.Sprint("receiver loss rate:"), s.ReceiverLossRate)
	outcomes := make([]string, 0, len(s.Outcomes))
	for o := range s.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		c := dataColor
		if o != string(trace.OutcomeQueued) {
			c = warnColor
		}
		fmt.Fprintf(out, "  %-15s %s\n", o, c.Sprint(s.Outcomes[trace.Outcome(o)]))
	}
}

func writeTrace(path string, st *trace.SimulationTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating trace file")
	}
	defer f.Close()
	if err := st.WriteYAML(f); err != nil {
		return err
	}
	logrus.Infof("Trace %s written to %s", st.RunID, path)
	return nil
}
