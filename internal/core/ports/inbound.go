package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/domain"
)

// MovementService is the inbound contract for the movement creator flow.
type MovementService interface {
	Start(ctx context.Context, site domain.Site) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	UploadImage(ctx context.Context, id, filename, mimeType string, body io.Reader) (*domain.Session, error)
	CompleteEdit(ctx context.Context, id string, lang domain.Language) (*domain.Session, error)
	UpdateCaption(ctx context.Context, id, caption string) (*domain.Session, error)
	Interact(ctx context.Context, id, summary string) (*domain.Session, error)
	Back(ctx context.Context, id string) (*domain.Session, error)
	Reset(ctx context.Context, id string) (*domain.Session, error)
	Describe(ctx context.Context, image []byte, mimeType string, lang domain.Language) domain.CaptionResult
}

// ColorAnalyzer is the inbound contract for stand-alone image analysis.
type ColorAnalyzer interface {
	AnalyzeImage(ctx context.Context, r io.Reader) (color.Analysis, error)
}

// SurveyService accepts survey responses and exports them for staff.
type SurveyService interface {
	Submit(ctx context.Context, submission domain.SurveySubmission) (*domain.SurveyResponse, error)
	Export(ctx context.Context, w io.Writer) error
}

// PaletteStatsService records and reads daily palette tallies.
type PaletteStatsService interface {
	Record(ctx context.Context, event domain.MovementCreated) error
	ForDay(ctx context.Context, day time.Time) ([]domain.PaletteStat, error)
}
