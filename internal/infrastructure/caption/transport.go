package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

// StatusError is a non-2xx reply from a caption provider.
type StatusError struct {
	Provider   string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "caption provider status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s status: %s", e.Provider, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Provider, e.Operation, e.Status, e.Body)
}

// Request is one JSON call to a caption provider.
type Request struct {
	Provider  string
	Operation string
	URL       string
	Header    http.Header
	Payload   any
}

// PostJSON sends req and decodes a 2xx reply into out.
func PostJSON(ctx context.Context, client *http.Client, req Request, out any) error {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", req.Operation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", req.Operation, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s request: %w", req.Provider, req.Operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Provider:   req.Provider,
			Operation:  req.Operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Operation, err)
	}
	return nil
}

// Classify tells the executor which provider failures count against the
// breaker. A rejected request (4xx other than 408 and 429) leaves it alone.
func Classify(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if retryableStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// Call runs fn through executor (when set) and reports failures as
// domain.ErrCaptionService, additionally tagged ErrTemporary when a later
// attempt could succeed.
func Call(ctx context.Context, executor *resilience.Executor, operation string, fn func(context.Context) error) error {
	var err error
	if executor != nil {
		err = executor.Execute(ctx, operation, fn, Classify)
	} else {
		err = fn(ctx)
	}
	if err == nil {
		return nil
	}
	if Classify(err).Retryable {
		err = domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrCaptionService, "caption image", err)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return code >= http.StatusInternalServerError
	}
}
