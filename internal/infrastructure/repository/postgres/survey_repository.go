package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

type SurveyRepository struct {
	db *sql.DB
}

func NewSurveyRepository(db *sql.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (r *SurveyRepository) Create(ctx context.Context, response *domain.SurveyResponse) error {
	answers := response.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO survey_responses (id, site, session_id, rating, answers, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		response.ID, string(response.Site), nullString(response.SessionID), response.Rating, answersJSON,
		nullString(response.Comment), response.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert survey response: %w", err)
	}
	return nil
}

// List returns every response, oldest first.
func (r *SurveyRepository) List(ctx context.Context) ([]domain.SurveyResponse, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, site, session_id, rating, answers, comment, created_at
FROM survey_responses
ORDER BY created_at ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query survey responses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SurveyResponse, 0)
	for rows.Next() {
		var resp domain.SurveyResponse
		var site string
		var sessionID, comment sql.NullString
		var answersRaw []byte
		if err := rows.Scan(&resp.ID, &site, &sessionID, &resp.Rating, &answersRaw, &comment, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		if len(answersRaw) > 0 {
			if err := json.Unmarshal(answersRaw, &resp.Answers); err != nil {
				return nil, fmt.Errorf("unmarshal answers: %w", err)
			}
		}
		resp.Site = domain.Site(site)
		resp.SessionID = sessionID.String
		resp.Comment = comment.String
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey responses: %w", err)
	}
	return out, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
