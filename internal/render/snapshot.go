package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/gift"
)

// ErrNoFrame means no camera frame has been published yet.
var ErrNoFrame = errors.New("no frame available")

// SnapshotPNG converts a camera JPEG to PNG, flipping it horizontally when
// mirrored so it matches what the user sees.
func SnapshotPNG(rawJPEG []byte, mirrored bool) ([]byte, error) {
	if len(rawJPEG) == 0 {
		return nil, ErrNoFrame
	}

	src, err := jpeg.Decode(bytes.NewReader(rawJPEG))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var img image.Image = src
	if mirrored {
		g := gift.New(gift.FlipHorizontal())
		dst := image.NewRGBA(g.Bounds(src.Bounds()))
		g.Draw(dst, src)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
