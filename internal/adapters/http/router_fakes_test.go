package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/movement-studio/internal/config"
	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/flow"
)

type movementFake struct {
	sessions    map[string]*domain.Session
	completeErr error
	described   domain.CaptionResult
	lastLang    domain.Language
	lastSite    domain.Site
}

func newMovementFake() *movementFake {
	return &movementFake{sessions: map[string]*domain.Session{}}
}

func (f *movementFake) Start(_ context.Context, site domain.Site) (*domain.Session, error) {
	f.lastSite = site
	s := &domain.Session{ID: "sess-1", Site: site, Flow: flow.Take(flow.Upload{})}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *movementFake) Get(_ context.Context, id string) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", errors.New(id))
	}
	return s, nil
}

func (f *movementFake) UploadImage(ctx context.Context, id, filename, mimeType string, body io.Reader) (*domain.Session, error) {
	s, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := io.ReadAll(body)
	s.Flow = flow.Take(flow.Edit{Image: flow.Image{Key: id + "/img", Filename: filename, MimeType: mimeType, Size: int64(len(data))}})
	return s, nil
}

func (f *movementFake) CompleteEdit(ctx context.Context, id string, lang domain.Language) (*domain.Session, error) {
	f.lastLang = lang
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	s, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Flow = flow.Take(flow.Result{
		Image:    *s.Flow.Image,
		Caption:  "a bright pink stroke",
		Analysis: color.Analyze(color.RGB{R: 255, G: 105, B: 180}),
	})
	return s, nil
}

func (f *movementFake) UpdateCaption(ctx context.Context, id, caption string) (*domain.Session, error) {
	s, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Flow.Caption = caption
	return s, nil
}

func (f *movementFake) Interact(ctx context.Context, id, summary string) (*domain.Session, error) {
	s, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Flow.Step = flow.StepInteract
	s.Flow.Interaction = &flow.Interaction{Summary: summary, CompletedAt: time.Unix(0, 0).UTC()}
	return s, nil
}

func (f *movementFake) Back(ctx context.Context, id string) (*domain.Session, error) {
	return f.Get(ctx, id)
}

func (f *movementFake) Reset(ctx context.Context, id string) (*domain.Session, error) {
	s, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Flow = flow.Take(flow.Upload{})
	return s, nil
}

func (f *movementFake) Describe(context.Context, []byte, string, domain.Language) domain.CaptionResult {
	return f.described
}

type analyzerFake struct {
	analysis color.Analysis
	err      error
}

func (f analyzerFake) AnalyzeImage(_ context.Context, r io.Reader) (color.Analysis, error) {
	_, _ = io.Copy(io.Discard, r)
	return f.analysis, f.err
}

type surveyFake struct {
	submitted []domain.SurveySubmission
	exportErr error
}

func (f *surveyFake) Submit(_ context.Context, s domain.SurveySubmission) (*domain.SurveyResponse, error) {
	if s.Rating < 1 || s.Rating > 5 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", errors.New("rating must be within 1..5"))
	}
	f.submitted = append(f.submitted, s)
	site, _ := domain.ParseSite(s.Site)
	return &domain.SurveyResponse{ID: "srv-1", Site: site, Rating: s.Rating}, nil
}

func (f *surveyFake) Export(_ context.Context, w io.Writer) error {
	if f.exportErr != nil {
		return f.exportErr
	}
	_, err := w.Write([]byte("PK-fake-workbook"))
	return err
}

type paletteFake struct {
	day   time.Time
	stats []domain.PaletteStat
}

func (f *paletteFake) Record(context.Context, domain.MovementCreated) error { return nil }

func (f *paletteFake) ForDay(_ context.Context, day time.Time) ([]domain.PaletteStat, error) {
	f.day = day
	return f.stats, nil
}

type routerFixture struct {
	movements *movementFake
	analyzer  *analyzerFake
	surveys   *surveyFake
	palette   *paletteFake
	handler   http.Handler
}

func testConfig() config.Config {
	return config.Config{
		SessionSecret:        "test-secret",
		SessionTTLHours:      1,
		AdminAPIKey:          "admin-key",
		InvitationHostPrefix: "invitation.",
		ExportTimezone:       "UTC",
		MaxImageBytes:        1 << 20,
	}
}

func newRouterFixture(cfg config.Config) *routerFixture {
	f := &routerFixture{
		movements: newMovementFake(),
		analyzer:  &analyzerFake{analysis: color.Analyze(color.RGB{R: 255, G: 105, B: 180})},
		surveys:   &surveyFake{},
		palette:   &paletteFake{},
	}
	f.handler = NewRouter(cfg, f.movements, f.analyzer, f.surveys, f.palette).Handler()
	return f
}
