package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBusy marks transient failures: rate limits, overload, timeouts.
	ErrBusy = errors.New("provider busy")
	// ErrUnavailable marks failures retrying will not fix: bad credentials,
	// unknown model, unreachable host.
	ErrUnavailable = errors.New("provider unavailable")
)

// Config represents the configuration for a vision LLM call
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MimeType    string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// StatusError classifies a non-200 response from a provider API.
func StatusError(code int, body string) error {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return fmt.Errorf("%w: received status %d - %s", ErrBusy, code, body)
	default:
		return fmt.Errorf("%w: received status %d - %s", ErrUnavailable, code, body)
	}
}

// TransportError classifies a failed round trip.
func TransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return fmt.Errorf("%w: failed to send request: %w", ErrUnavailable, err)
}
