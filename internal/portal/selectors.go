// File: internal/portal/selectors.go
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/yonosemanana/calclick/internal/browser"
	"github.com/yonosemanana/calclick/internal/planner"
)

// lookupStrategy is one way of locating a control on the live page.
// Strategies for a control are tried in priority order; the first one whose
// element renders wins. Any change to these attributes on the live site is
// an external breaking change that surfaces as a stage failure.
type lookupStrategy struct {
	name string
	sel  string
	q    browser.Query
}

// Login page controls. The form carries stable kt-login identifiers.
var (
	loginFormStrategies = []lookupStrategy{
		{name: "login-form-class", sel: ".kt-login_form", q: browser.ByCSS},
	}
	usernameStrategies = []lookupStrategy{
		{name: "username-by-name", sel: `input[name="_username"]`, q: browser.ByCSS},
	}
	passwordStrategies = []lookupStrategy{
		{name: "password-by-name", sel: `input[name="_password"]`, q: browser.ByCSS},
	}
	submitStrategies = []lookupStrategy{
		{name: "submit-by-id", sel: "#kt_login_signin_submit", q: browser.ByCSS},
	}
)

// Location control. The select2 widget renders the currently selected label
// inside a nested span under #remote_holder; only XPath addresses it
// reliably across portal releases.
var locationDropdownStrategies = []lookupStrategy{
	{name: "remote-holder-span", sel: `//*[@id="remote_holder"]/span/span[1]/span`, q: browser.ByXPath},
	{name: "remote-holder-any-span", sel: `//*[@id="remote_holder"]//span[contains(@class, "select2-selection__rendered")]`, q: browser.ByXPath},
}

// locationLabelStrategy addresses the rendered label for the verification
// read. Same element as the dropdown opener.
var locationLabelStrategies = locationDropdownStrategies

// Toggle controls: a numeric data-id plus a semantic class marker
// distinguish start from stop.
var (
	startButtonStrategies = []lookupStrategy{
		{name: "start-css", sel: `button[data-id="1"].start-work-button`, q: browser.ByCSS},
		{name: "start-xpath", sel: `//button[@data-id='1' and contains(@class, 'start-work-button')]`, q: browser.ByXPath},
	}
	stopButtonStrategies = []lookupStrategy{
		{name: "stop-css", sel: `button[data-id="6"].end-work-button`, q: browser.ByCSS},
		{name: "stop-xpath", sel: `//button[@data-id='6' and contains(@class, 'end-work-button')]`, q: browser.ByXPath},
	}
)

// optionStrategies builds the lookup list for a dropdown option row. Options
// are matched by their data-id plus the displayed text.
func optionStrategies(loc planner.Location) []lookupStrategy {
	dataID, text := "0", "In the office"
	if loc == planner.LocationHome {
		dataID, text = "1", "Home office"
	}
	return []lookupStrategy{
		{
			name: "option-by-data-id-and-text",
			sel:  fmt.Sprintf(`//div[@data-id='%s'][contains(text(), '%s')]`, dataID, text),
			q:    browser.ByXPath,
		},
		{
			name: "option-by-text",
			sel:  fmt.Sprintf(`//li[contains(@class, 'select2-results__option')][contains(text(), '%s')]`, text),
			q:    browser.ByXPath,
		},
	}
}

// findFirst waits for the first strategy whose element becomes visible and
// returns it. The caller's deadline bounds the whole scan; it is split
// evenly across strategies so a missing element cannot starve the
// alternatives behind it.
func findFirst(ctx context.Context, d Driver, strategies []lookupStrategy) (lookupStrategy, error) {
	var share time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		share = time.Until(deadline) / time.Duration(len(strategies))
	}

	var lastErr error
	for _, st := range strategies {
		if err := ctx.Err(); err != nil {
			return lookupStrategy{}, err
		}
		tryCtx := ctx
		cancel := context.CancelFunc(func() {})
		if share > 0 {
			tryCtx, cancel = context.WithTimeout(ctx, share)
		}
		err := d.WaitVisible(tryCtx, st.sel, st.q)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return st, nil
	}
	if lastErr == nil {
		lastErr = context.DeadlineExceeded
	}
	return lookupStrategy{}, lastErr
}

// clickFirst locates a control via findFirst and clicks it.
func clickFirst(ctx context.Context, d Driver, strategies []lookupStrategy) (lookupStrategy, error) {
	st, err := findFirst(ctx, d, strategies)
	if err != nil {
		return lookupStrategy{}, err
	}
	if err := d.Click(ctx, st.sel, st.q); err != nil {
		return lookupStrategy{}, err
	}
	return st, nil
}
