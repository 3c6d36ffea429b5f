package extraction

import (
	"errors"
)

var (
	// ErrSoftFailure means the service answered but no title was recognised.
	ErrSoftFailure = errors.New("no fields recognized")
	// ErrServiceBusy is transient; the user should try again shortly.
	ErrServiceBusy = errors.New("recognition service busy")
	// ErrServiceUnavailable means the service is misconfigured or unreachable.
	ErrServiceUnavailable = errors.New("recognition service unavailable")
)

// Kind names the error class for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSoftFailure):
		return "soft_failure"
	case errors.Is(err, ErrServiceBusy):
		return "service_busy"
	default:
		return "service_unavailable"
	}
}

// UserMessage is the hint shown for a failed extraction.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSoftFailure):
		return "no fields recognized"
	case errors.Is(err, ErrServiceBusy):
		return "recognition service is busy, try again shortly"
	default:
		return "recognition service is unavailable, check the service configuration"
	}
}
