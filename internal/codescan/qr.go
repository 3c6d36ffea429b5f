package codescan

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder decodes QR codes with gozxing.
type QRDecoder struct {
	mu     sync.Mutex
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder returns a decoder that tries hard on every region
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode reports "" when the region holds no readable code. gozxing signals
// that through not-found, checksum and format errors, none of which are
// failures of the decoder itself.
func (d *QRDecoder) Decode(pixels []byte, width, height int) (string, error) {
	if len(pixels) < width*height*4 {
		return "", fmt.Errorf("pixel buffer too short: got %d bytes for %dx%d", len(pixels), width, height)
	}

	img := &image.RGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize region: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	result, err := d.reader.Decode(bmp, d.hints)
	if isNoCode(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode region: %w", err)
	}
	return result.GetText(), nil
}

func isNoCode(err error) bool {
	var (
		notFound gozxing.NotFoundException
		checksum gozxing.ChecksumException
		format   gozxing.FormatException
	)
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}
