package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrUnreadableImage is matched by every UnreadableImageError.
var ErrUnreadableImage = errors.New("unreadable image")

// UnreadableImageError reports bytes that no registered decoder accepts.
type UnreadableImageError struct {
	Source string
	Err    error
}

func (e *UnreadableImageError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unreadable image: %v", e.Err)
	}
	return fmt.Sprintf("unreadable image %s: %v", e.Source, e.Err)
}

func (e *UnreadableImageError) Unwrap() error { return e.Err }

func (e *UnreadableImageError) Is(target error) bool {
	return target == ErrUnreadableImage
}

// DefaultMaxImagePixels bounds width*height of a decoded image.
const DefaultMaxImagePixels = 40_000_000

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes. source names the
// input in error messages. The header is read first and images larger
// than maxPixels are rejected before any pixel buffer is allocated; a
// non-positive maxPixels means DefaultMaxImagePixels.
func DecodeImage(data []byte, source string, maxPixels int) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &UnreadableImageError{Source: source, Err: errors.New("empty input")}
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &UnreadableImageError{Source: source, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", &UnreadableImageError{Source: source, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", &UnreadableImageError{
			Source: source,
			Err:    fmt.Errorf("%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, maxPixels),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &UnreadableImageError{Source: source, Err: err}
	}
	return img, format, nil
}
