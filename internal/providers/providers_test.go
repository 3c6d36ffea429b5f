package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{code: 429, want: ErrBusy},
		{code: 503, want: ErrBusy},
		{code: 529, want: ErrBusy},
		{code: 401, want: ErrUnavailable},
		{code: 404, want: ErrUnavailable},
		{code: 500, want: ErrUnavailable},
	}

	for _, tt := range tests {
		err := StatusError(tt.code, "body")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.code, tt.want, err)
		}
	}
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if err := TransportError(ctx, ctx.Err()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected deadline to be busy, got %v", err)
	}

	refused := errors.New("connection refused")
	if err := TransportError(context.Background(), refused); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected refused connection to be unavailable, got %v", err)
	}
}
