package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/ports"
)

const (
	maxSurveyAnswers      = 20
	maxSurveyAnswerRunes  = 500
	maxSurveyCommentRunes = 2000
)

type SurveyUseCase struct {
	repo     ports.SurveyRepository
	exporter ports.SurveyExporter
	now      func() time.Time
}

func NewSurveyUseCase(repo ports.SurveyRepository, exporter ports.SurveyExporter) *SurveyUseCase {
	return &SurveyUseCase{
		repo:     repo,
		exporter: exporter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *SurveyUseCase) Submit(ctx context.Context, submission domain.SurveySubmission) (*domain.SurveyResponse, error) {
	site, err := domain.ParseSite(submission.Site)
	if err != nil {
		return nil, err
	}
	if submission.Rating < 1 || submission.Rating > 5 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", fmt.Errorf("rating %d out of range 1..5", submission.Rating))
	}
	answers, err := normalizeAnswers(submission.Answers)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(submission.Comment)
	if utf8.RuneCountInString(comment) > maxSurveyCommentRunes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", errors.New("comment is too long"))
	}

	response := &domain.SurveyResponse{
		ID:        uuid.NewString(),
		Site:      site,
		SessionID: strings.TrimSpace(submission.SessionID),
		Rating:    submission.Rating,
		Answers:   answers,
		Comment:   comment,
		CreatedAt: uc.now(),
	}
	if err := uc.repo.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("create survey response: %w", err)
	}
	return response, nil
}

func (uc *SurveyUseCase) Export(ctx context.Context, w io.Writer) error {
	responses, err := uc.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list survey responses: %w", err)
	}
	if err := uc.exporter.WriteSurveys(w, responses); err != nil {
		return fmt.Errorf("write survey export: %w", err)
	}
	return nil
}

func normalizeAnswers(in map[string]string) (map[string]string, error) {
	if len(in) > maxSurveyAnswers {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", fmt.Errorf("more than %d answers", maxSurveyAnswers))
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", errors.New("answer with empty question key"))
		}
		value = strings.TrimSpace(value)
		if utf8.RuneCountInString(value) > maxSurveyAnswerRunes {
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit survey", fmt.Errorf("answer %q is too long", key))
		}
		out[key] = value
	}
	return out, nil
}
