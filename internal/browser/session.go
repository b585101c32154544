// File: internal/browser/session.go
package browser

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Query selects the lookup mode for element selectors. The portal markup
// needs both CSS (login form controls) and XPath (the select2 dropdown and
// the option rows matched by visible text).
type Query int

const (
	ByCSS Query = iota
	ByXPath
)

func (q Query) option() chromedp.QueryOption {
	if q == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Session wraps a single browser tab. It is exclusively owned by one routine
// invocation: created at routine start, destroyed at routine end.
type Session struct {
	ctx       context.Context
	release   func()
	logger    *zap.Logger
	closeOnce sync.Once
}

func newSession(ctx context.Context, release func(), logger *zap.Logger) *Session {
	return &Session{
		ctx:     ctx,
		release: release,
		logger:  logger,
	}
}

// run executes chromedp actions on a context that combines the session
// lifetime with the caller's deadline. The chromedp connection values live
// on s.ctx, so the combined context must derive from it.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the given URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	return s.run(ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until the element is rendered and visible, or the
// caller's deadline expires.
func (s *Session) WaitVisible(ctx context.Context, sel string, q Query) error {
	return s.run(ctx, chromedp.WaitVisible(sel, q.option()))
}

// Click waits for the element to be visible and clicks it.
func (s *Session) Click(ctx context.Context, sel string, q Query) error {
	return s.run(ctx, chromedp.Click(sel, q.option()))
}

// Clear empties an input element's value.
func (s *Session) Clear(ctx context.Context, sel string, q Query) error {
	return s.run(ctx, chromedp.Clear(sel, q.option()))
}

// SendKeys types text into an input element.
func (s *Session) SendKeys(ctx context.Context, sel, text string, q Query) error {
	return s.run(ctx, chromedp.SendKeys(sel, text, q.option()))
}

// Text reads the rendered text content of an element.
func (s *Session) Text(ctx context.Context, sel string, q Query) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(sel, &text, q.option())); err != nil {
		return "", err
	}
	return text, nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Screenshot captures the visible viewport as a PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close tears down the tab and its browser process. Safe to call more than
// once; only the first call releases resources.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		s.release()
	})
	return nil
}
