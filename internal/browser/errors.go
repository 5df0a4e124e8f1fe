package browser

import "errors"

var (
	// ErrNotOpen is returned by operations that need a live browser handle.
	ErrNotOpen = errors.New("browser not open")
	// ErrLaunch is returned when Chrome could not be launched or attached.
	ErrLaunch = errors.New("browser launch failed")
	// ErrPageLoadTimeout is returned when a navigation-class operation did
	// not settle within the configured timeout. Callers must treat the page
	// content as unknown.
	ErrPageLoadTimeout = errors.New("page load timed out")
	// ErrElementNotFound is returned when every locator strategy in the
	// chain has been exhausted.
	ErrElementNotFound = errors.New("element not found")
)
