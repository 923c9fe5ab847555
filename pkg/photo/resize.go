package photo

import (
	"bytes"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

const shrinkAttempts = 6

// Thumbnail decodes raw and fits it inside a size x size box, returning JPEG bytes.
func Thumbnail(raw []byte, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", size)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, size, size, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Shrink downsizes raw until it fits in maxBytes, keeping its format.
// Payloads already under the budget are returned unchanged, and so is raw
// when no smaller encoding could be produced.
func Shrink(raw []byte, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 || len(raw) <= maxBytes {
		return raw, nil
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	format := imaging.JPEG
	switch ContentType(raw) {
	case MimePNG:
		format = imaging.PNG
	case MimeGIF:
		format = imaging.GIF
	}

	// encoded size roughly scales with area
	scale := math.Sqrt(float64(maxBytes) / float64(len(raw)))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 {
		scale = 0.1
	}
	best := raw
	for attempt := 0; attempt < shrinkAttempts; attempt++ {
		w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
		h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, imaging.Resize(img, w, h, imaging.Lanczos), format); err != nil {
			return nil, fmt.Errorf("encode image: %w", err)
		}
		if buf.Len() < len(best) {
			best = buf.Bytes()
		}
		if buf.Len() <= maxBytes || (w == 1 && h == 1) {
			break
		}
		scale *= 0.75
	}
	return best, nil
}
