package color

import (
	"errors"
	"fmt"
)

var (
	// ErrImageLoad marks an upload that cannot be decoded into pixels.
	ErrImageLoad = errors.New("image load failed")
	// ErrNoColorData marks an image with no pixel left to sample.
	ErrNoColorData = errors.New("no color data")
	// ErrInvalidHex marks a color string that is not #RGB or #RRGGBB.
	ErrInvalidHex = errors.New("invalid hex color")
)

func wrap(kind error, operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}
