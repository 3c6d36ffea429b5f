package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pintuan-hub/publisher/internal/providers"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// ExtractText sends the prompt and image to Gemini and returns the text reply
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", providers.ErrUnavailable)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create new gemini client: %w", providers.ErrUnavailable, err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(config.Prompt)}
	if len(config.Image) > 0 {
		mimeType := config.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: config.Image})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var text []string
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text = append(text, string(txt))
		}
	}
	if len(text) == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return strings.Join(text, "\n"), nil
}

func classify(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return providers.StatusError(apiErr.Code, apiErr.Message)
	}

	// the gRPC transport reports quota and overload only through the message
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "429") {
		return fmt.Errorf("%w: failed to generate content: %w", providers.ErrBusy, err)
	}
	return providers.TransportError(ctx, fmt.Errorf("failed to generate content: %w", err))
}
