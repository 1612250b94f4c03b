package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

func TestMovementEventRoundTrip(t *testing.T) {
	event := domain.MovementCreated{
		SessionID:    "s-1",
		Site:         domain.SiteInvitation,
		BrandColor:   "orange",
		RefinedColor: "Tangerine",
		ExtractedHex: "#FF5E1F",
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := encodeMovementCreated(event)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeMovementCreated(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CreatedAt.Equal(event.CreatedAt) {
		t.Fatalf("created_at mismatch: %s vs %s", got.CreatedAt, event.CreatedAt)
	}
	got.CreatedAt = event.CreatedAt
	if got != event {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, event)
	}
}

func TestMovementEventRequiresSession(t *testing.T) {
	if _, err := encodeMovementCreated(domain.MovementCreated{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := decodeMovementCreated([]byte(`{"brand_color":"pink"}`)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := decodeMovementCreated([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWrapTemporaryForConnectionErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	permanent := errors.New("bad subject")
	if err := wrapTemporaryIfNeeded(permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error to stay as is, got %v", err)
	}

	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation should not count, got %+v", class)
	}
	if class := classifyNATSError(fmt.Errorf("nats publish: %w", nats.ErrMaxPayload)); class.Retryable || class.RecordFailure {
		t.Fatalf("oversized payload must not trip the breaker, got %+v", class)
	}
}
