package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/ports"
)

// PaletteStatsUseCase tallies finished movements per day and refined color.
type PaletteStatsUseCase struct {
	repo ports.PaletteStatsRepository
	now  func() time.Time
}

func NewPaletteStatsUseCase(repo ports.PaletteStatsRepository) *PaletteStatsUseCase {
	return &PaletteStatsUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (uc *PaletteStatsUseCase) Record(ctx context.Context, event domain.MovementCreated) error {
	if event.BrandColor == "" || event.RefinedColor == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record palette stat", errors.New("event without color"))
	}
	at := event.CreatedAt
	if at.IsZero() {
		at = uc.now()
	}
	if err := uc.repo.Increment(ctx, Day(at), event.BrandColor, event.RefinedColor); err != nil {
		return fmt.Errorf("increment palette stat: %w", err)
	}
	return nil
}

func (uc *PaletteStatsUseCase) ForDay(ctx context.Context, day time.Time) ([]domain.PaletteStat, error) {
	if day.IsZero() {
		day = uc.now()
	}
	stats, err := uc.repo.ListByDay(ctx, Day(day))
	if err != nil {
		return nil, fmt.Errorf("list palette stats: %w", err)
	}
	return stats, nil
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
