package analytics

import "errors"

var (
	// ErrNoApp is returned when the handle is requested without an App.
	ErrNoApp = errors.New("analytics requires an initialized app")
	// ErrMissingMeasurementID is returned when the App has no measurement ID.
	ErrMissingMeasurementID = errors.New("app options have no measurement ID")
	// ErrInvalidEventName is returned for names that break the event naming rules.
	ErrInvalidEventName = errors.New("invalid event name")
	// ErrInvalidParam is returned for unsupported or oversized event parameters.
	ErrInvalidParam = errors.New("invalid event parameter")
	// ErrInvalidUserProperty is returned for malformed user properties or IDs.
	ErrInvalidUserProperty = errors.New("invalid user property")
	// ErrClosed is returned by operations after Shutdown.
	ErrClosed = errors.New("analytics has been shut down")
)
