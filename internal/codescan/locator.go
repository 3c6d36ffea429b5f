package codescan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
)

// ErrNotFound means no region produced a payload. It is an expected outcome,
// not a failure of the image source or decoder.
var ErrNotFound = errors.New("no code found in image")

// ImageSource exposes raw RGBA pixels for rectangular sub-regions of an image.
type ImageSource interface {
	Size() (width, height int)
	// ReadRegion returns width*height*4 bytes of RGBA for rect scaled to width x height.
	ReadRegion(rect image.Rectangle, width, height int) ([]byte, error)
}

// Decoder decodes a machine-readable code from an RGBA buffer.
// An empty payload with a nil error means nothing was found.
type Decoder interface {
	Decode(pixels []byte, width, height int) (string, error)
}

// Locator scans an ordered set of regions and stops at the first payload.
type Locator struct {
	decoder Decoder
	regions []Region
	maxSide int
}

// Option configures a Locator
type Option func(*Locator)

// WithRegions overrides the scan order.
func WithRegions(regions []Region) Option {
	return func(l *Locator) { l.regions = regions }
}

// WithMaxSide overrides the decode resolution cap.
func WithMaxSide(maxSide int) Option {
	return func(l *Locator) { l.maxSide = maxSide }
}

// NewLocator creates a locator using the default region order
func NewLocator(decoder Decoder, opts ...Option) *Locator {
	l := &Locator{
		decoder: decoder,
		regions: DefaultRegions,
		maxSide: DefaultMaxSide,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the trimmed payload of the first region that decodes, or
// ErrNotFound. Errors from the source or decoder are returned as-is (wrapped).
func (l *Locator) Locate(ctx context.Context, src ImageSource) (string, error) {
	width, height := src.Size()
	if width <= 0 || height <= 0 {
		return "", ErrNotFound
	}

	for _, region := range l.regions {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rect := region.Rect(width, height)
		if rect.Empty() {
			continue
		}
		outW, outH := OutputSize(rect, l.maxSide)

		pixels, err := src.ReadRegion(rect, outW, outH)
		if err != nil {
			return "", fmt.Errorf("failed to read region %s: %w", region.Name, err)
		}

		payload, err := l.decoder.Decode(pixels, outW, outH)
		if err != nil {
			return "", fmt.Errorf("failed to decode region %s: %w", region.Name, err)
		}

		if payload = strings.TrimSpace(payload); payload != "" {
			slog.Debug("Code located", "region", region.Name, "width", outW, "height", outH)
			return payload, nil
		}
		slog.Debug("No code in region", "region", region.Name)
	}

	return "", ErrNotFound
}
