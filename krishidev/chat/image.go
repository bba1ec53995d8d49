// krishidev/chat/image.go
package chat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage marks upload bytes that are not a decodable raster image.
var ErrInvalidImage = errors.New("chat: invalid image")

const (
	imageMaxEdge = 1024
	jpegQuality  = 80
)

// ImagePayload is a normalized, inline-ready image.
type ImagePayload struct {
	MIME string
	Data []byte
}

// NormalizeImage decodes JPEG, PNG or WebP bytes, downscales anything wider
// or taller than imageMaxEdge, and re-encodes as JPEG. Returns
// ErrInvalidImage when the bytes do not decode.
func NormalizeImage(data []byte) (ImagePayload, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ImagePayload{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > imageMaxEdge || h > imageMaxEdge {
		scale := float64(imageMaxEdge) / float64(max(w, h))
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return ImagePayload{}, err
	}
	return ImagePayload{MIME: "image/jpeg", Data: buf.Bytes()}, nil
}
