// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/browser"
	"github.com/yonosemanana/calclick/internal/observability"
	"github.com/yonosemanana/calclick/internal/planner"
	"github.com/yonosemanana/calclick/internal/portal"
	"github.com/yonosemanana/calclick/internal/scheduler"
)

// newRunCmd creates and configures the `run` command, which hosts the
// scheduler loop until the process is interrupted.
func newRunCmd() *cobra.Command {
	var once bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the attendance scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The context from main.go is canceled on SIGINT/SIGTERM.
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			manager := browser.NewManager(cfg.Browser, logger)
			client := portal.NewClient(cfg.Portal, func(ctx context.Context) (portal.Driver, error) {
				return manager.NewSession(ctx)
			}, logger)

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			pl := planner.New(rng, logger)
			sched := scheduler.New(cfg.Schedule, pl, client, logger)

			if once {
				return runOnce(ctx, client, sched, logger)
			}

			sched.Reschedule()
			logger.Info("Scheduler initialized. Running until interrupted.")
			sched.Run(ctx)

			logger.Info("Shutting down.")
			return nil
		},
	}

	runCmd.Flags().BoolVar(&once, "once", false, "Execute the morning and evening routines immediately and exit (smoke run).")
	return runCmd
}

// runOnce executes both routines back to back, mirroring a full day in one
// shot. Useful to verify credentials and selectors without waiting for a
// trigger.
func runOnce(ctx context.Context, client *portal.Client, sched *scheduler.Scheduler, logger *zap.Logger) error {
	logger.Info("Smoke run: executing morning and evening routines now.")

	morning := client.MorningRoutine(ctx, sched.PlanFor(time.Now().Weekday()))
	evening := client.EveningRoutine(ctx)

	if !morning.OK || !evening.OK {
		return fmt.Errorf("smoke run incomplete: morning ok=%v, evening ok=%v", morning.OK, evening.OK)
	}
	logger.Info("Smoke run completed.")
	return nil
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
