package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

// SessionRepository persists movement sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
}

// SurveyRepository persists survey responses.
type SurveyRepository interface {
	Create(ctx context.Context, response *domain.SurveyResponse) error
	List(ctx context.Context) ([]domain.SurveyResponse, error)
}

// PaletteStatsRepository stores daily color tallies.
type PaletteStatsRepository interface {
	Increment(ctx context.Context, day time.Time, brand, refined string) error
	ListByDay(ctx context.Context, day time.Time) ([]domain.PaletteStat, error)
}

// ObjectStorage stores uploaded images.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MovementEvents publishes/consumes finished movement events.
type MovementEvents interface {
	PublishMovementCreated(ctx context.Context, event domain.MovementCreated) error
	SubscribeMovementCreated(ctx context.Context, handler func(context.Context, domain.MovementCreated) error) error
}

// Captioner describes an image in a few words.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string, lang domain.Language) (string, error)
}

// SurveyExporter renders survey responses into a spreadsheet.
type SurveyExporter interface {
	WriteSurveys(w io.Writer, responses []domain.SurveyResponse) error
}
