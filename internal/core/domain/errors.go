package domain

import (
	"errors"
	"fmt"

	"github.com/kirillkom/movement-studio/internal/core/color"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTemporary       = errors.New("temporary failure")

	// ErrConflict means the session changed since it was loaded.
	ErrConflict = errors.New("session changed concurrently")

	// ErrCaptionService marks a failed or rejected caption request.
	ErrCaptionService = errors.New("caption service failed")

	ErrImageLoad   = color.ErrImageLoad
	ErrNoColorData = color.ErrNoColorData
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
