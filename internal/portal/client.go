// File: internal/portal/client.go
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/config"
	"github.com/yonosemanana/calclick/internal/planner"
)

// locationSelectAttempts bounds the open-select-verify cycle. UI re-render
// races make the first click unreliable, hence the explicit confirmation
// read instead of trusting the click alone.
const locationSelectAttempts = 3

// navigationPollInterval is how often the post-submit URL is re-read while
// waiting for the login redirect.
const navigationPollInterval = 250 * time.Millisecond

// Client drives one portal session at a time through the
// login -> location-select -> toggle sequence. It owns no browser state
// itself; a fresh driver is produced per routine via the factory.
type Client struct {
	cfg       config.PortalConfig
	newDriver DriverFactory
	logger    *zap.Logger
}

// NewClient creates a portal client.
func NewClient(cfg config.PortalConfig, factory DriverFactory, logger *zap.Logger) *Client {
	return &Client{
		cfg:       cfg,
		newDriver: factory,
		logger:    logger.Named("portal"),
	}
}

// stepCtx bounds a single UI step with the configured timeout.
func (c *Client) stepCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.StepTimeout)
}

// login authenticates the session: render the form, fill credentials,
// submit, and wait for the redirect away from the entry URL.
func (c *Client) login(ctx context.Context, d Driver, log *zap.Logger) error {
	if err := d.Navigate(ctx, c.cfg.URL); err != nil {
		return fmt.Errorf("%w: navigating to portal: %v", ErrLoginTimeout, err)
	}

	formCtx, cancel := c.stepCtx(ctx)
	_, err := findFirst(formCtx, d, loginFormStrategies)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: login form never rendered: %v", ErrLoginTimeout, err)
	}

	fillCtx, cancel := c.stepCtx(ctx)
	defer cancel()
	for _, field := range []struct {
		strategies []lookupStrategy
		value      string
		desc       string
	}{
		{usernameStrategies, c.cfg.Username, "username"},
		{passwordStrategies, c.cfg.Password, "password"},
	} {
		st, err := findFirst(fillCtx, d, field.strategies)
		if err != nil {
			return fmt.Errorf("%w: %s field not found: %v", ErrLoginTimeout, field.desc, err)
		}
		if err := d.Clear(fillCtx, st.sel, st.q); err != nil {
			return fmt.Errorf("%w: clearing %s field: %v", ErrLoginTimeout, field.desc, err)
		}
		if err := d.SendKeys(fillCtx, st.sel, field.value, st.q); err != nil {
			return fmt.Errorf("%w: filling %s field: %v", ErrLoginTimeout, field.desc, err)
		}
		log.Debug("Credential field filled.", zap.String("field", field.desc))
	}

	if _, err := clickFirst(fillCtx, d, submitStrategies); err != nil {
		return fmt.Errorf("%w: submit control: %v", ErrLoginTimeout, err)
	}
	log.Debug("Login form submitted.")

	currentURL, err := c.waitForNavigation(ctx, d)
	if err != nil {
		return err
	}
	log.Info("URL after login.", zap.String("url", currentURL))

	if strings.Contains(strings.ToLower(currentURL), "login") {
		return ErrStillOnLoginPage
	}
	return nil
}

// waitForNavigation polls the current URL until it differs from the portal
// entry URL or the step timeout expires.
func (c *Client) waitForNavigation(ctx context.Context, d Driver) (string, error) {
	navCtx, cancel := c.stepCtx(ctx)
	defer cancel()

	for {
		current, err := d.Location(navCtx)
		if err == nil && current != c.cfg.URL && current != "" {
			return current, nil
		}
		select {
		case <-navCtx.Done():
			return "", fmt.Errorf("%w: no navigation after submit", ErrLoginTimeout)
		case <-time.After(navigationPollInterval):
		}
	}
}

// readLocationState inspects the rendered dropdown label and classifies it.
// The value is never cached; every verification re-reads the live control.
func (c *Client) readLocationState(ctx context.Context, d Driver) planner.Location {
	readCtx, cancel := c.stepCtx(ctx)
	defer cancel()

	st, err := findFirst(readCtx, d, locationLabelStrategies)
	if err != nil {
		return planner.LocationUnknown
	}
	label, err := d.Text(readCtx, st.sel, st.q)
	if err != nil {
		return planner.LocationUnknown
	}
	return classifyLocation(label)
}

// classifyLocation maps a displayed label back onto a location tag. "Home
// office" contains "office", so the home check has to come first.
func classifyLocation(label string) planner.Location {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "home"):
		return planner.LocationHome
	case strings.Contains(lower, "office"):
		return planner.LocationOffice
	default:
		return planner.LocationUnknown
	}
}

// selectLocationOnce runs a single open-select cycle without verification.
func (c *Client) selectLocationOnce(ctx context.Context, d Driver, loc planner.Location, log *zap.Logger) error {
	openCtx, cancel := c.stepCtx(ctx)
	st, err := clickFirst(openCtx, d, locationDropdownStrategies)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDropdownNotFound, err)
	}
	log.Debug("Location dropdown opened.", zap.String("strategy", st.name))

	optCtx, cancel := c.stepCtx(ctx)
	st, err = clickFirst(optCtx, d, optionStrategies(loc))
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrOptionNotFound, loc, err)
	}
	log.Debug("Location option clicked.", zap.String("strategy", st.name), zap.String("location", string(loc)))
	return nil
}

// selectLocation drives the dropdown to the requested location and verifies
// the displayed label actually changed, retrying the whole cycle up to
// locationSelectAttempts times.
func (c *Client) selectLocation(ctx context.Context, d Driver, loc planner.Location, log *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= locationSelectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.selectLocationOnce(ctx, d, loc, log); err != nil {
			lastErr = err
			log.Warn("Location select attempt failed.", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		observed := c.readLocationState(ctx, d)
		if observed == loc {
			log.Info("Location selection verified.", zap.String("location", string(loc)), zap.Int("attempt", attempt))
			return nil
		}
		lastErr = fmt.Errorf("%w: wanted %q, control shows %q", ErrVerifyMismatch, loc, observed)
		log.Warn("Location verification mismatch.",
			zap.Int("attempt", attempt),
			zap.String("wanted", string(loc)),
			zap.String("observed", string(observed)),
		)
	}
	return lastErr
}

// toggle clicks a start/stop action control.
func (c *Client) toggle(ctx context.Context, d Driver, strategies []lookupStrategy, log *zap.Logger) error {
	clickCtx, cancel := c.stepCtx(ctx)
	defer cancel()

	st, err := clickFirst(clickCtx, d, strategies)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrControlNotFound, err)
	}
	log.Info("Toggle control clicked.", zap.String("strategy", st.name))
	return nil
}

// toggleStart clicks the start-work control, guarding against the click
// having a side effect on the location control: the label is captured
// before the click and re-verified after, with exactly one corrective
// selection if it flipped.
func (c *Client) toggleStart(ctx context.Context, d Driver, log *zap.Logger) error {
	before := c.readLocationState(ctx, d)

	if err := c.toggle(ctx, d, startButtonStrategies, log); err != nil {
		return err
	}

	if before == planner.LocationUnknown {
		return nil
	}
	after := c.readLocationState(ctx, d)
	if after == before {
		return nil
	}

	log.Warn("Start click changed the location control; restoring.",
		zap.String("before", string(before)),
		zap.String("after", string(after)),
	)
	if err := c.selectLocationOnce(ctx, d, before, log); err != nil {
		// The day is already started; a failed restore is reported but does
		// not fail the routine.
		log.Warn("Corrective location selection failed.", zap.Error(err))
	}
	return nil
}

// toggleStop clicks the stop-work control.
func (c *Client) toggleStop(ctx context.Context, d Driver, log *zap.Logger) error {
	return c.toggle(ctx, d, stopButtonStrategies, log)
}
