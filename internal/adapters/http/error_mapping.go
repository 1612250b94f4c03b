package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrImageLoad), domain.IsKind(err, domain.ErrNoColorData):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrCaptionService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage keeps internal details out of 5xx responses.
func publicErrorMessage(status int, err error) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "color analysis failed"
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusBadGateway:
		return "caption service failed"
	default:
		return err.Error()
	}
}
