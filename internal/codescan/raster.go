package codescan

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// RasterSource serves regions of a decoded image.
type RasterSource struct {
	img image.Image
}

// NewRasterSource wraps an already decoded image
func NewRasterSource(img image.Image) *RasterSource {
	return &RasterSource{img: img}
}

// DecodeRaster decodes encoded image bytes (jpeg, png or gif).
func DecodeRaster(data []byte) (*RasterSource, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return NewRasterSource(img), format, nil
}

func (r *RasterSource) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *RasterSource) ReadRegion(rect image.Rectangle, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", width, height)
	}

	// rect is relative to the image origin
	rect = rect.Add(r.img.Bounds().Min).Intersect(r.img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v is outside the image", rect)
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), r.img, rect.Min, draw.Src)

	if width == rect.Dx() && height == rect.Dy() {
		return crop.Pix, nil
	}

	scaled := resize.Resize(uint(width), uint(height), crop, resize.Bilinear)
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), scaled, scaled.Bounds().Min, draw.Src)
	return out.Pix, nil
}
