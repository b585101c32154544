// File: internal/portal/driver.go

// Package portal implements the session state machine that drives the work
// portal: login, work-location selection with verify-and-retry, and the
// start/stop toggle. It talks to the browser exclusively through the Driver
// interface so the whole machine is testable against a fake page.
package portal

import (
	"context"

	"github.com/yonosemanana/calclick/internal/browser"
)

// Driver is the minimal browser surface the state machine needs. It is
// satisfied by *browser.Session. Every call respects the deadline on the
// passed context; a stuck page fails with a timeout instead of hanging.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string, q browser.Query) error
	Click(ctx context.Context, sel string, q browser.Query) error
	Clear(ctx context.Context, sel string, q browser.Query) error
	SendKeys(ctx context.Context, sel, text string, q browser.Query) error
	Text(ctx context.Context, sel string, q browser.Query) (string, error)
	Location(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}

// DriverFactory produces a fresh authenticated-capable driver for one
// routine invocation. Sessions are never reused across routines.
type DriverFactory func(ctx context.Context) (Driver, error)

var _ Driver = (*browser.Session)(nil)
