// File: internal/portal/outcome.go
package portal

import "errors"

// Stage identifies which part of a routine failed.
type Stage string

const (
	StageLogin          Stage = "login"
	StageLocationSelect Stage = "location-select"
	StageToggleAction   Stage = "toggle-action"
)

// Sentinel errors classifying stage failures.
var (
	// ErrLoginTimeout covers both a login form that never rendered and a
	// submit that never navigated away.
	ErrLoginTimeout = errors.New("timeout waiting for login flow")
	// ErrStillOnLoginPage means navigation happened but the resulting URL
	// still classifies as a login page.
	ErrStillOnLoginPage = errors.New("still on login page after submit")
	// ErrDropdownNotFound means the location dropdown could not be located
	// or opened with any lookup strategy.
	ErrDropdownNotFound = errors.New("location dropdown not found")
	// ErrOptionNotFound means the dropdown opened but the requested option
	// row never became clickable.
	ErrOptionNotFound = errors.New("location option not found")
	// ErrVerifyMismatch means the control's displayed label never matched
	// the requested location within the bounded retry cycle.
	ErrVerifyMismatch = errors.New("location verification mismatch after retries")
	// ErrControlNotFound means a start/stop action control was not found or
	// never became interactable.
	ErrControlNotFound = errors.New("action control not found")
)

// Outcome is the result of one routine execution. It is logged by the
// routine itself and then discarded; nothing is persisted.
type Outcome struct {
	RunID   string
	Routine string
	OK      bool
	// Stage and Err are set only on failure.
	Stage Stage
	Err   error
	// LastURL is the navigational location observed at failure time.
	LastURL string
	// ArtifactPath points at the diagnostic screenshot, when one could be
	// captured.
	ArtifactPath string
}
