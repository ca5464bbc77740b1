package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// CLI flags for the run command
	scenarioPath string // YAML scenario file
	seed         int64  // Overrides the scenario seed when set
	steps        int    // Overrides the scenario step count when positive
	logLevel     string // Log verbosity level
	traceOut     string // Path to write the decision trace as YAML
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pubsim",
	Short: "Deterministic pub/sub transport simulator",
}

// runCmd executes a scenario file and prints what every recorder received
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting simulation.")
		}
		opts := runOptions{scenarioPath: scenarioPath, steps: steps, traceOut: traceOut}
		if cmd.Flags().Changed("seed") {
			opts.seed = &seed
		}
		if err := runScenario(cmd.OutOrStdout(), opts); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the transport's randomness (overrides the scenario)")
	runCmd.Flags().IntVar(&steps, "steps", 0, "Driver steps to run (0 uses the scenario's steps)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the decision trace to this YAML file")

	rootCmd.AddCommand(runCmd)
}
