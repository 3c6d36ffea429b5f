package codescan

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedImage is both the source and the decoder: each region read is
// remembered and decoding answers from the payload scripted for that region.
type scriptedImage struct {
	width, height int
	payloads      map[string]string
	reads         []image.Rectangle
	decoded       []string
	readErr       error
}

func (s *scriptedImage) Size() (int, int) { return s.width, s.height }

func (s *scriptedImage) ReadRegion(rect image.Rectangle, width, height int) ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.reads = append(s.reads, rect)
	return make([]byte, width*height*4), nil
}

func (s *scriptedImage) Decode(pixels []byte, width, height int) (string, error) {
	last := s.reads[len(s.reads)-1]
	for _, r := range DefaultRegions {
		if r.Rect(s.width, s.height) == last {
			s.decoded = append(s.decoded, r.Name)
			return s.payloads[r.Name], nil
		}
	}
	return "", nil
}

func TestLocateProbesRegionsInOrder(t *testing.T) {
	img := &scriptedImage{width: 1000, height: 800}
	loc := NewLocator(img)

	_, err := loc.Locate(context.Background(), img)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"full", "br50", "br40", "rbStrip"}, img.decoded)
}

func TestLocateStopsAtFirstPayload(t *testing.T) {
	img := &scriptedImage{
		width:    1000,
		height:   800,
		payloads: map[string]string{"br40": "  https://mobile.yangkeduo.com/x?id=1 \n", "rbStrip": "later"},
	}
	loc := NewLocator(img)

	got, err := loc.Locate(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "https://mobile.yangkeduo.com/x?id=1", got)
	assert.Len(t, img.reads, 3)
	assert.Equal(t, image.Rect(600, 480, 1000, 800), img.reads[2])
}

func TestLocateIgnoresWhitespacePayload(t *testing.T) {
	img := &scriptedImage{
		width:    400,
		height:   400,
		payloads: map[string]string{"full": "   ", "rbStrip": "L1"},
	}
	got, err := NewLocator(img).Locate(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "L1", got)
	assert.Len(t, img.reads, 4)
}

func TestLocateSourceErrorIsNotNotFound(t *testing.T) {
	boom := errors.New("disk gone")
	img := &scriptedImage{width: 100, height: 100, readErr: boom}

	_, err := NewLocator(img).Locate(context.Background(), img)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLocateHonoursCancellation(t *testing.T) {
	img := &scriptedImage{width: 100, height: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocator(img).Locate(ctx, img)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, img.reads)
}

func TestLocateEmptyImage(t *testing.T) {
	img := &scriptedImage{}
	_, err := NewLocator(img).Locate(context.Background(), img)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name  string
		rect  image.Rectangle
		maxW  int
		wantW int
		wantH int
	}{
		{name: "fits", rect: image.Rect(0, 0, 640, 480), maxW: 980, wantW: 640, wantH: 480},
		{name: "wide", rect: image.Rect(0, 0, 1960, 1000), maxW: 980, wantW: 980, wantH: 500},
		{name: "tall", rect: image.Rect(0, 0, 1080, 2400), maxW: 980, wantW: 441, wantH: 980},
		{name: "no cap", rect: image.Rect(0, 0, 3000, 3000), maxW: 0, wantW: 3000, wantH: 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputSize(tt.rect, tt.maxW)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}
