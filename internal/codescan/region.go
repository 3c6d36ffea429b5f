package codescan

import "image"

// DefaultMaxSide bounds the longer side of every region handed to the decoder.
const DefaultMaxSide = 980

// Region is a sub-area of the source image expressed as fractions of its size.
type Region struct {
	Name   string
	X0, Y0 float64
	X1, Y1 float64
}

// DefaultRegions is the fixed scan order. Share codes sit near the lower-right
// corner of marketplace screenshots, so everything after the full frame is
// biased that way.
var DefaultRegions = []Region{
	{Name: "full", X0: 0, Y0: 0, X1: 1, Y1: 1},
	{Name: "br50", X0: 0.5, Y0: 0.5, X1: 1, Y1: 1},
	{Name: "br40", X0: 0.6, Y0: 0.6, X1: 1, Y1: 1},
	{Name: "rbStrip", X0: 0.6, Y0: 0.3, X1: 1, Y1: 1},
}

// Rect maps the region onto an image of the given size.
func (r Region) Rect(width, height int) image.Rectangle {
	return image.Rect(
		int(r.X0*float64(width)),
		int(r.Y0*float64(height)),
		int(r.X1*float64(width)),
		int(r.Y1*float64(height)),
	)
}

// OutputSize returns the decode resolution for rect: unchanged when it already
// fits inside maxSide, otherwise scaled down so the longer side equals maxSide.
func OutputSize(rect image.Rectangle, maxSide int) (int, int) {
	w, h := rect.Dx(), rect.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}
