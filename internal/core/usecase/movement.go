package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/flow"
	"github.com/kirillkom/movement-studio/internal/core/ports"
)

const (
	DefaultMaxImageBytes int64 = 10 << 20
	maxCaptionRunes            = 200
	maxSummaryRunes            = 500
)

type MovementOptions struct {
	MaxImageBytes int64
	Logger        *slog.Logger
	Now           func() time.Time
}

type MovementUseCase struct {
	sessions  ports.SessionRepository
	storage   ports.ObjectStorage
	analyzer  ports.ColorAnalyzer
	captioner ports.Captioner
	events    ports.MovementEvents

	maxImageBytes int64
	logger        *slog.Logger
	now           func() time.Time
}

func NewMovementUseCase(
	sessions ports.SessionRepository,
	storage ports.ObjectStorage,
	analyzer ports.ColorAnalyzer,
	captioner ports.Captioner,
	events ports.MovementEvents,
	opts MovementOptions,
) *MovementUseCase {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &MovementUseCase{
		sessions:      sessions,
		storage:       storage,
		analyzer:      analyzer,
		captioner:     captioner,
		events:        events,
		maxImageBytes: opts.MaxImageBytes,
		logger:        opts.Logger,
		now:           opts.Now,
	}
}

func (uc *MovementUseCase) Start(ctx context.Context, site domain.Site) (*domain.Session, error) {
	if site == "" {
		site = domain.SiteMain
	}
	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Site:      site,
		Flow:      flow.Take(flow.New().State()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (uc *MovementUseCase) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, _, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (uc *MovementUseCase) UploadImage(
	ctx context.Context,
	id, filename, mimeType string,
	body io.Reader,
) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload image", errors.New("empty body"))
	}

	data, err := io.ReadAll(io.LimitReader(body, uc.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload image", errors.New("empty image"))
	}
	if int64(len(data)) > uc.maxImageBytes {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"upload image",
			fmt.Errorf("image exceeds %d bytes", uc.maxImageBytes),
		)
	}
	mimeType = resolveMimeType(mimeType, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload image", fmt.Errorf("unsupported content type %q", mimeType))
	}

	image := flow.Image{
		Key:      fmt.Sprintf("%s/%s_%s", session.ID, uuid.NewString(), sanitizeFilename(filename)),
		Filename: filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}
	if err := uc.storage.Save(ctx, image.Key, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if err := uc.commit(ctx, session, machine, flow.Edit{Image: image}); err != nil {
		uc.release(ctx, session.ID, image)
		return nil, err
	}
	return session, nil
}

// CompleteEdit analyzes the held image and captions it at the same time.
// Analysis failure aborts the transition; caption failure only leaves the
// caption empty.
func (uc *MovementUseCase) CompleteEdit(ctx context.Context, id string, lang domain.Language) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	image, ok := flow.ImageOf(machine.State())
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "complete edit", errors.New("no image uploaded"))
	}
	data, err := uc.readImage(ctx, image)
	if err != nil {
		return nil, err
	}

	var (
		analysis   color.Analysis
		caption    string
		captionErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := uc.analyzer.AnalyzeImage(gctx, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("analyze color: %w", err)
		}
		analysis = res
		return nil
	})
	g.Go(func() error {
		caption, captionErr = uc.caption(gctx, data, image.MimeType, lang)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if captionErr != nil {
		uc.logger.Warn("caption_failed", "session_id", session.ID, "error", captionErr)
		caption = ""
	}

	result := flow.Result{
		Image:         image,
		Caption:       caption,
		CaptionFailed: captionErr != nil,
		Analysis:      analysis,
	}
	if err := uc.commit(ctx, session, machine, result); err != nil {
		return nil, err
	}
	uc.publish(ctx, session, analysis)
	return session, nil
}

func (uc *MovementUseCase) UpdateCaption(ctx context.Context, id, caption string) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	result, ok := machine.State().(flow.Result)
	if !ok {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"update caption",
			fmt.Errorf("caption can only change on the result step, session is at %s", machine.Step()),
		)
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > maxCaptionRunes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update caption", fmt.Errorf("caption longer than %d characters", maxCaptionRunes))
	}
	result.Caption = caption
	result.CaptionFailed = false
	if err := uc.commit(ctx, session, machine, result); err != nil {
		return nil, err
	}
	return session, nil
}

func (uc *MovementUseCase) Interact(ctx context.Context, id, summary string) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := flow.RequireResult(machine.State())
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "interact", err)
	}
	summary = strings.TrimSpace(summary)
	if utf8.RuneCountInString(summary) > maxSummaryRunes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "interact", fmt.Errorf("summary longer than %d characters", maxSummaryRunes))
	}
	next := flow.Interact{
		Result:      result,
		Interaction: flow.Interaction{Summary: summary, CompletedAt: uc.now()},
	}
	if err := uc.commit(ctx, session, machine, next); err != nil {
		return nil, err
	}
	return session, nil
}

func (uc *MovementUseCase) Back(ctx context.Context, id string) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := machine.State()
	machine.Back()
	if err := uc.persist(ctx, session, prev, machine.State()); err != nil {
		return nil, err
	}
	return session, nil
}

func (uc *MovementUseCase) Reset(ctx context.Context, id string) (*domain.Session, error) {
	session, machine, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := machine.State()
	machine.Reset()
	if err := uc.persist(ctx, session, prev, machine.State()); err != nil {
		return nil, err
	}
	return session, nil
}

// Describe captions an image outside of any session. It never fails: errors
// come back as success=false with the sentinel description.
func (uc *MovementUseCase) Describe(ctx context.Context, image []byte, mimeType string, lang domain.Language) domain.CaptionResult {
	if len(image) == 0 {
		return domain.CaptionResult{Success: false, Description: domain.CaptionErrorSentinel}
	}
	caption, err := uc.caption(ctx, image, resolveMimeType(mimeType, image), lang)
	if err != nil {
		uc.logger.Warn("describe_failed", "error", err)
		return domain.CaptionResult{Success: false, Description: domain.CaptionErrorSentinel}
	}
	return domain.CaptionResult{Success: true, Description: caption}
}

func (uc *MovementUseCase) caption(ctx context.Context, image []byte, mimeType string, lang domain.Language) (string, error) {
	if uc.captioner == nil {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("captioner is not configured"))
	}
	text, err := uc.captioner.Caption(ctx, image, mimeType, lang)
	if err != nil {
		if domain.IsKind(err, domain.ErrCaptionService) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrCaptionService, "caption image", errors.New("empty caption"))
	}
	return text, nil
}

func (uc *MovementUseCase) load(ctx context.Context, id string) (*domain.Session, *flow.Machine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "load session", errors.New("session id is required"))
	}
	session, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch session by id: %w", err)
	}
	state, err := flow.Restore(session.Flow)
	if err != nil {
		return nil, nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	machine, err := flow.FromState(state)
	if err != nil {
		return nil, nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	return session, machine, nil
}

func (uc *MovementUseCase) commit(ctx context.Context, session *domain.Session, machine *flow.Machine, next flow.State) error {
	prev := machine.State()
	if err := machine.Advance(next); err != nil {
		return fmt.Errorf("advance flow: %w", err)
	}
	return uc.persist(ctx, session, prev, next)
}

// persist stores the new state and only then releases the image the
// transition dropped, so a failed write never loses the stored upload. The
// write only lands if nobody changed the session since load; a lost race
// returns ErrConflict and releases nothing, since prev is no longer current.
func (uc *MovementUseCase) persist(ctx context.Context, session *domain.Session, prev, next flow.State) error {
	previous := session.Flow
	session.Flow = flow.Take(next)
	session.UpdatedAt = uc.now()
	if err := uc.sessions.Update(ctx, session); err != nil {
		session.Flow = previous
		return fmt.Errorf("update session: %w", err)
	}
	if image, ok := flow.Released(prev, next); ok {
		uc.release(ctx, session.ID, image)
	}
	return nil
}

func (uc *MovementUseCase) release(ctx context.Context, sessionID string, image flow.Image) {
	if err := uc.storage.Delete(ctx, image.Key); err != nil {
		uc.logger.Warn("image_release_failed", "session_id", sessionID, "key", image.Key, "error", err)
	}
}

func (uc *MovementUseCase) readImage(ctx context.Context, image flow.Image) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, image.Key)
	if err != nil {
		return nil, fmt.Errorf("open stored image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored image: %w", err)
	}
	return data, nil
}

func (uc *MovementUseCase) publish(ctx context.Context, session *domain.Session, analysis color.Analysis) {
	if uc.events == nil {
		return
	}
	event := domain.MovementCreated{
		SessionID:    session.ID,
		Site:         session.Site,
		BrandColor:   string(analysis.Brand.Name),
		RefinedColor: analysis.Refined.Name,
		ExtractedHex: analysis.ExtractedHex,
		IsAchromatic: analysis.IsAchromatic,
		CreatedAt:    uc.now(),
	}
	if err := uc.events.PublishMovementCreated(ctx, event); err != nil {
		uc.logger.Warn("movement_event_publish_failed", "session_id", session.ID, "error", err)
	}
}

func resolveMimeType(mimeType string, data []byte) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		return http.DetectContentType(data)
	}
	return mimeType
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "image.bin"
	}
	return base
}
