// File: internal/browser/manager.go

// Package browser provides the chromedp-backed session provider. It owns
// browser process allocation and exposes a Session with bounded-timeout
// primitives for navigating, waiting, and interacting with page elements.
// The portal state machine consumes sessions through its own Driver
// interface, so everything chromedp-specific stays in this package.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/yonosemanana/calclick/internal/config"
)

// stealthScript masks the webdriver marker before any portal script runs.
// The disable-blink-features flag covers most checks; this covers the rest.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Manager handles browser process allocation and session creation.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewManager creates a browser manager. No browser process is started until
// a session is requested; each session owns its own process and is never
// reused across routine invocations.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
	if cfg.VersionHint != "" {
		m.logger.Info("Chrome version hint configured.", zap.String("version_hint", cfg.VersionHint))
	}
	return m
}

// allocatorOptions builds the Chrome flag set. The flags mirror what the
// portal tolerates in production: automation markers suppressed, shared
// memory and GPU quirks disabled for container use.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("start-maximized", true),
	)

	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	for _, arg := range m.cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// NewSession launches a browser process and returns a ready-to-drive
// session. The caller owns the session exclusively and must Close it.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process up front so allocation failures surface
	// here instead of on the first navigation, and install the stealth
	// script so it applies to every document the session loads.
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s := newSession(browserCtx, func() {
		browserCancel()
		allocCancel()
	}, m.logger)

	m.logger.Debug("Browser session started.", zap.Bool("headless", m.cfg.Headless))
	return s, nil
}
