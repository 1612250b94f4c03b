package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

type PaletteStatsRepository struct {
	db *sql.DB
}

func NewPaletteStatsRepository(db *sql.DB) *PaletteStatsRepository {
	return &PaletteStatsRepository{db: db}
}

func (r *PaletteStatsRepository) Increment(ctx context.Context, day time.Time, brand, refined string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO palette_stats (day, brand_color, refined_color, count)
VALUES ($1,$2,$3,1)
ON CONFLICT (day, brand_color, refined_color)
DO UPDATE SET count = palette_stats.count + 1
`, day, brand, refined)
	if err != nil {
		return fmt.Errorf("increment palette stat: %w", err)
	}
	return nil
}

func (r *PaletteStatsRepository) ListByDay(ctx context.Context, day time.Time) ([]domain.PaletteStat, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT day, brand_color, refined_color, count
FROM palette_stats
WHERE day = $1
ORDER BY count DESC, refined_color ASC
`, day)
	if err != nil {
		return nil, fmt.Errorf("query palette stats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PaletteStat, 0)
	for rows.Next() {
		var stat domain.PaletteStat
		if err := rows.Scan(&stat.Day, &stat.BrandColor, &stat.RefinedColor, &stat.Count); err != nil {
			return nil, fmt.Errorf("scan palette stat: %w", err)
		}
		out = append(out, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate palette stats: %w", err)
	}
	return out, nil
}

