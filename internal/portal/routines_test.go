// File: internal/portal/routines_test.go
package portal

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonosemanana/calclick/internal/planner"
)

func TestMorningRoutine(t *testing.T) {
	t.Run("runs login, location selection, and start to completion", func(t *testing.T) {
		page := newFakePage()
		page.labels = []string{"In the office"}
		c := newTestClient(t, page)

		outcome := c.MorningRoutine(context.Background(), planner.LocationOffice)

		assert.True(t, outcome.OK)
		assert.Equal(t, "morning", outcome.Routine)
		assert.NotEmpty(t, outcome.RunID)
		assert.NoError(t, outcome.Err)
		assert.Empty(t, outcome.ArtifactPath, "no diagnostics on success")
		assert.Equal(t, 1, page.countClicks(startButtonStrategies[0].sel))
		assert.Equal(t, 1, page.closeCount, "session released exactly once")
	})

	t.Run("skips location selection when today has no planned location", func(t *testing.T) {
		page := newFakePage()
		page.labels = []string{"In the office"}
		c := newTestClient(t, page)

		outcome := c.MorningRoutine(context.Background(), planner.LocationUnknown)

		assert.True(t, outcome.OK)
		assert.Zero(t, page.countClicks(locationDropdownStrategies[0].sel))
		assert.Equal(t, 1, page.countClicks(startButtonStrategies[0].sel))
	})

	t.Run("reports a login failure with diagnostics and releases the session", func(t *testing.T) {
		page := newFakePage()
		page.onClick = nil // submit never navigates
		c := newTestClient(t, page)

		outcome := c.MorningRoutine(context.Background(), planner.LocationHome)

		assert.False(t, outcome.OK)
		assert.Equal(t, StageLogin, outcome.Stage)
		require.ErrorIs(t, outcome.Err, ErrLoginTimeout)
		assert.Equal(t, testPortalURL, outcome.LastURL)
		require.NotEmpty(t, outcome.ArtifactPath)
		_, err := os.Stat(outcome.ArtifactPath)
		assert.NoError(t, err, "screenshot file should exist")
		assert.Equal(t, 1, page.closeCount)
		assert.Zero(t, page.countClicks(startButtonStrategies[0].sel), "later stages must not run")
	})

	t.Run("attributes an exhausted verification cycle to the selection stage", func(t *testing.T) {
		page := newFakePage()
		page.labels = []string{"In the office"} // never flips to home
		c := newTestClient(t, page)

		outcome := c.MorningRoutine(context.Background(), planner.LocationHome)

		assert.False(t, outcome.OK)
		assert.Equal(t, StageLocationSelect, outcome.Stage)
		require.ErrorIs(t, outcome.Err, ErrVerifyMismatch)
		assert.Equal(t, testDashboardURL, outcome.LastURL)
		assert.Zero(t, page.countClicks(startButtonStrategies[0].sel))
	})

	t.Run("survives a failed screenshot capture", func(t *testing.T) {
		page := newFakePage()
		page.onClick = nil
		page.screenshotErr = errors.New("render process gone")
		c := newTestClient(t, page)

		outcome := c.MorningRoutine(context.Background(), planner.LocationHome)

		assert.False(t, outcome.OK)
		assert.Empty(t, outcome.ArtifactPath)
		assert.Equal(t, 1, page.closeCount)
	})

	t.Run("fails fast when no browser session can be created", func(t *testing.T) {
		page := newFakePage()
		c := newTestClient(t, page)
		c.newDriver = func(ctx context.Context) (Driver, error) {
			return nil, errors.New("chrome executable not found")
		}

		outcome := c.MorningRoutine(context.Background(), planner.LocationOffice)

		assert.False(t, outcome.OK)
		assert.Equal(t, StageLogin, outcome.Stage)
		assert.ErrorContains(t, outcome.Err, "browser session unavailable")
		assert.Zero(t, page.closeCount)
	})
}

func TestEveningRoutine(t *testing.T) {
	t.Run("logs in and stops work", func(t *testing.T) {
		page := newFakePage()
		c := newTestClient(t, page)

		outcome := c.EveningRoutine(context.Background())

		assert.True(t, outcome.OK)
		assert.Equal(t, "evening", outcome.Routine)
		assert.Equal(t, 1, page.countClicks(stopButtonStrategies[0].sel))
		assert.Zero(t, page.countClicks(locationDropdownStrategies[0].sel), "evening never touches the location control")
		assert.Equal(t, 1, page.closeCount)
	})

	t.Run("reports a missing stop control as a toggle failure", func(t *testing.T) {
		page := newFakePage()
		page.hide(stopButtonStrategies[0].sel, stopButtonStrategies[1].sel)
		c := newTestClient(t, page)

		outcome := c.EveningRoutine(context.Background())

		assert.False(t, outcome.OK)
		assert.Equal(t, StageToggleAction, outcome.Stage)
		require.ErrorIs(t, outcome.Err, ErrControlNotFound)
		assert.Equal(t, 1, page.closeCount)
	})
}
