// Package main runs a depth adjustment session headless against simulated
// collaborators and writes the session CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"depthmatch"

	"github.com/spf13/cobra"
	"go.viam.com/rdk/logging"
)

var (
	participantID string
	outputDir     string
	seed          uint64
	tickHz        int
	pressPeriod   int
	holdTicks     int
	printDesign   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "depthsim",
	Short: "Run a simulated depth adjustment session",
	Long: `depthsim runs the full experiment sequence (welcome, practice, main block,
end) on a virtual clock with a scripted confirm button and a simulated
participant, then writes the session CSV.

Examples:
  # Run a session for participant P001 with a fixed trial order
  depthsim --participant P001 --seed 42

  # Only print the main-block order for a seed
  depthsim --seed 42 --design`,
	RunE: runSimulation,
}

func init() {
	rootCmd.Flags().StringVar(&participantID, "participant", "SIM001", "participant id embedded in the file name")
	rootCmd.Flags().StringVar(&outputDir, "out", "DepthAdjustmentData", "output directory")
	rootCmd.Flags().Uint64Var(&seed, "seed", 1, "seed for the main-block order and simulated responses")
	rootCmd.Flags().IntVar(&tickHz, "tick-hz", 60, "virtual ticks per second")
	rootCmd.Flags().IntVar(&pressPeriod, "press-period", 90, "ticks between simulated confirm presses")
	rootCmd.Flags().IntVar(&holdTicks, "hold-ticks", 5, "ticks each simulated press is held")
	rootCmd.Flags().BoolVar(&printDesign, "design", false, "print the main-block order and exit")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if tickHz <= 0 {
		return fmt.Errorf("tick-hz must be positive")
	}

	design := depthmatch.NewSeededTrialDesign(seed)
	if printDesign {
		for i, t := range design.MainTrials() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d R1=%g R2=%g speed=%g dir=%s\n", i, t.R1, t.R2, t.RotationSpeed, t.Direction)
		}
		return nil
	}

	logger := logging.NewLogger("depthsim")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	collab := depthmatch.Collaborators{
		Stimulus:  &depthmatch.SimStimulus{},
		Response:  depthmatch.NewSimResponse(seed),
		Presenter: &depthmatch.SimPresenter{},
	}
	session := depthmatch.NewSession(ctx, depthmatch.SessionConfig{
		ParticipantID: participantID,
		AutoStart:     true,
		Design:        design,
	}, collab, depthmatch.NewRecorder(outputDir), logger)

	ticks, err := depthmatch.Simulate(ctx, session, depthmatch.SimulateOptions{
		Tick:      time.Second / time.Duration(tickHz),
		Period:    pressPeriod,
		HoldTicks: holdTicks,
	})
	if err != nil {
		return err
	}
	if !session.Done() {
		return fmt.Errorf("session did not finish after %d ticks (phase %s)", ticks, session.Phase())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s finished in %d ticks (%s virtual)\n",
		session.ID(), ticks, time.Duration(ticks)*time.Second/time.Duration(tickHz))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", session.OutputPath())
	return nil
}
