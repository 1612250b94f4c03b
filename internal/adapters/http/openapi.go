package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// loadOpenAPI parses and validates the embedded API description.
func loadOpenAPI(ctx context.Context) (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

// openAPIValidationMiddleware rejects requests whose parameters or JSON
// bodies do not match the API description. Routes missing from the
// document pass through. Multipart bodies are left to the handlers, which
// stream them under a size limit.
func (rt *Router) openAPIValidationMiddleware(next http.Handler) http.Handler {
	if rt.openapi == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := rt.openapi.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		multipart := isMultipart(r)
		if !multipart && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: multipart,
				MultiError:         false,
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "validate request", validationReason(err)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// validationReason names the offending parameter when there is one.
func validationReason(err error) error {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		return fmt.Errorf("invalid parameter %q: %w", reqErr.Parameter.Name, err)
	}
	return err
}
