// File: internal/browser/context.go
package browser

import "context"

// combineContext creates a context derived from primary that is canceled
// when either primary or secondary is canceled. chromedp connection values
// travel on primary (the session context) while secondary carries the
// operation's deadline, so the combined context must inherit from primary.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
