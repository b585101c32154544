// File: internal/portal/routines.go
package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/planner"
)

// diagnosticTimeout bounds the best-effort failure capture so a dead
// browser cannot stall cleanup.
const diagnosticTimeout = 5 * time.Second

// MorningRoutine runs login -> select today's location -> start work.
// A stage failure short-circuits the remaining stages; the session is
// always released. The outcome is logged and returned, never an error:
// routine failures must not reach the run loop.
func (c *Client) MorningRoutine(ctx context.Context, loc planner.Location) Outcome {
	runID := uuid.New().String()
	log := c.logger.With(zap.String("run_id", runID), zap.String("routine", "morning"))
	log.Info("Starting morning routine.", zap.String("planned_location", string(loc)))

	outcome := Outcome{RunID: runID, Routine: "morning"}

	d, err := c.newDriver(ctx)
	if err != nil {
		outcome.Stage, outcome.Err = StageLogin, fmt.Errorf("browser session unavailable: %w", err)
		log.Error("Morning routine failed before login.", zap.Error(outcome.Err))
		return outcome
	}
	defer c.release(d, log)

	if err := c.login(ctx, d, log); err != nil {
		return c.fail(ctx, d, outcome, StageLogin, err, log)
	}
	log.Info("Login successful.")

	if loc == planner.LocationUnknown {
		// No plan entry for today (weekend run); leave whatever the portal
		// has preselected.
		log.Warn("No planned location for today; skipping location selection.")
	} else if err := c.selectLocation(ctx, d, loc, log); err != nil {
		return c.fail(ctx, d, outcome, StageLocationSelect, err, log)
	}

	if err := c.toggleStart(ctx, d, log); err != nil {
		return c.fail(ctx, d, outcome, StageToggleAction, err, log)
	}

	outcome.OK = true
	log.Info("Morning routine completed.")
	return outcome
}

// EveningRoutine runs login -> stop work.
func (c *Client) EveningRoutine(ctx context.Context) Outcome {
	runID := uuid.New().String()
	log := c.logger.With(zap.String("run_id", runID), zap.String("routine", "evening"))
	log.Info("Starting evening routine.")

	outcome := Outcome{RunID: runID, Routine: "evening"}

	d, err := c.newDriver(ctx)
	if err != nil {
		outcome.Stage, outcome.Err = StageLogin, fmt.Errorf("browser session unavailable: %w", err)
		log.Error("Evening routine failed before login.", zap.Error(outcome.Err))
		return outcome
	}
	defer c.release(d, log)

	if err := c.login(ctx, d, log); err != nil {
		return c.fail(ctx, d, outcome, StageLogin, err, log)
	}
	log.Info("Login successful.")

	if err := c.toggleStop(ctx, d, log); err != nil {
		return c.fail(ctx, d, outcome, StageToggleAction, err, log)
	}

	outcome.OK = true
	log.Info("Evening routine completed.")
	return outcome
}

// fail records a stage failure: the last observed URL, a best-effort
// diagnostic screenshot, and a log entry. A failed capture is itself only
// logged; it never escalates.
func (c *Client) fail(ctx context.Context, d Driver, outcome Outcome, stage Stage, err error, log *zap.Logger) Outcome {
	outcome.Stage = stage
	outcome.Err = err

	diagCtx, cancel := context.WithTimeout(ctx, diagnosticTimeout)
	defer cancel()

	if url, locErr := d.Location(diagCtx); locErr == nil {
		outcome.LastURL = url
	}
	outcome.ArtifactPath = c.captureScreenshot(diagCtx, d, outcome.RunID, log)

	log.Error("Routine stage failed.",
		zap.String("stage", string(stage)),
		zap.Error(err),
		zap.String("last_url", outcome.LastURL),
		zap.String("artifact", outcome.ArtifactPath),
	)
	return outcome
}

// captureScreenshot persists a failure screenshot into the artifact
// directory and returns its path, or "" when capture failed.
func (c *Client) captureScreenshot(ctx context.Context, d Driver, runID string, log *zap.Logger) string {
	buf, err := d.Screenshot(ctx)
	if err != nil {
		log.Warn("Failed to capture diagnostic screenshot.", zap.Error(err))
		return ""
	}
	if err := os.MkdirAll(c.cfg.ArtifactDir, 0o755); err != nil {
		log.Warn("Failed to create artifact directory.", zap.Error(err))
		return ""
	}
	path := filepath.Join(c.cfg.ArtifactDir, fmt.Sprintf("failure-%s.png", runID))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		log.Warn("Failed to write diagnostic screenshot.", zap.Error(err))
		return ""
	}
	log.Info("Diagnostic screenshot saved.", zap.String("path", path))
	return path
}

// release closes the driver unconditionally. Close errors at teardown are
// only worth a debug line. A background context is used because the routine
// context may already be canceled.
func (c *Client) release(d Driver, log *zap.Logger) {
	closeCtx, cancel := context.WithTimeout(context.Background(), diagnosticTimeout)
	defer cancel()
	if err := d.Close(closeCtx); err != nil {
		log.Debug("Error closing browser session.", zap.Error(err))
	}
}
