package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/pintuan-hub/publisher/internal/providers"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", &googleapi.Error{Code: 429, Message: "quota"}, providers.ErrBusy},
		{"overloaded", &googleapi.Error{Code: 503}, providers.ErrBusy},
		{"forbidden", &googleapi.Error{Code: 403, Message: "bad key"}, providers.ErrUnavailable},
		{"grpc exhausted", errors.New("rpc error: code = RESOURCE_EXHAUSTED"), providers.ErrBusy},
		{"deadline", context.DeadlineExceeded, providers.ErrBusy},
		{"other", errors.New("boom"), providers.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(context.Background(), tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractTextWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := New().ExtractText(context.Background(), providers.Config{Model: "gemini-2.5-flash"})
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}
