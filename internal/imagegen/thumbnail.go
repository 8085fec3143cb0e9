package imagegen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

// Thumbnail bounds in pixels.
const (
	MinThumbnailSize     = 32
	MaxThumbnailSize     = 512
	DefaultThumbnailSize = 256
	WebPQuality          = 70
)

// Thumbnail decodes a stored base64 image and re-encodes it as a webp that fits
// in a size x size box, preserving aspect ratio. Images already inside the box
// are only re-encoded.
func Thumbnail(b64 string, size int) ([]byte, error) {
	if size < MinThumbnailSize || size > MaxThumbnailSize {
		return nil, fmt.Errorf("thumbnail size must be between %d and %d", MinThumbnailSize, MaxThumbnailSize)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resizeToFit(src, size, size), &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
