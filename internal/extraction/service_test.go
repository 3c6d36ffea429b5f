package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pintuan-hub/publisher/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply  string
	err    error
	block  bool
	config providers.Config
}

func (f *fakeProvider) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	f.config = config
	if f.block {
		<-ctx.Done()
		return "", fmt.Errorf("failed to send request: %w", ctx.Err())
	}
	return f.reply, f.err
}

func TestExtractSuccess(t *testing.T) {
	p := &fakeProvider{reply: `{"title":"T1","price":9.9,"group_size":3,"is_baiyi_butie":true}`}
	svc := NewService(p, WithModel("test-model"))

	rec, err := svc.Extract(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "T1", rec.Title)
	assert.Equal(t, 9.9, *rec.Price)
	assert.Equal(t, 3, *rec.GroupSize)
	assert.True(t, rec.IsSubsidized)

	assert.Equal(t, "test-model", p.config.Model)
	assert.Equal(t, "image/png", p.config.MimeType)
	assert.Equal(t, []byte("img"), p.config.Image)
	assert.Contains(t, p.config.Prompt, "is_baiyi_butie")
}

func TestExtractEmptyTitleIsSoftFailure(t *testing.T) {
	svc := NewService(&fakeProvider{reply: `{"title":"","price":9.9}`})

	_, err := svc.Extract(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrSoftFailure)
	assert.Equal(t, "no fields recognized", UserMessage(err))
}

func TestExtractErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		want     error
	}{
		{name: "rate limited", provider: &fakeProvider{err: providers.StatusError(429, "quota")}, want: ErrServiceBusy},
		{name: "bad key", provider: &fakeProvider{err: providers.StatusError(401, "key")}, want: ErrServiceUnavailable},
		{name: "unclassified", provider: &fakeProvider{err: errors.New("weird")}, want: ErrServiceUnavailable},
		{name: "hung call", provider: &fakeProvider{block: true}, want: ErrServiceBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.provider, WithTimeout(20*time.Millisecond))
			_, err := svc.Extract(context.Background(), nil, "")
			require.ErrorIs(t, err, tt.want)
			assert.NotEmpty(t, UserMessage(err))
		})
	}
}

func TestExtractRateLimitRespectsContext(t *testing.T) {
	svc := NewService(&fakeProvider{reply: `{"title":"T"}`}, WithRateLimit(0.001), WithTimeout(10*time.Millisecond))

	_, err := svc.Extract(context.Background(), nil, "")
	require.NoError(t, err)

	// the single token is spent, the next call cannot get one before its deadline
	_, err = svc.Extract(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrServiceBusy)
}

func TestNewProvider(t *testing.T) {
	t.Setenv("EXTRACTION_PROVIDER", "")
	t.Setenv("GEMINI_MODEL", "")

	_, model, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", model)

	_, _, err = NewProvider("claude-on-a-toaster")
	require.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "soft_failure", Kind(ErrSoftFailure))
	assert.Equal(t, "service_busy", Kind(fmt.Errorf("%w: x", ErrServiceBusy)))
	assert.Equal(t, "service_unavailable", Kind(ErrServiceUnavailable))
}
