package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	flowJSON, err := json.Marshal(session.Flow)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO movement_sessions (id, site, step, flow, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		session.ID, string(session.Site), string(session.Flow.Step), flowJSON, session.Version, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, site, flow, version, created_at, updated_at
FROM movement_sessions
WHERE id = $1
`, id)

	var session domain.Session
	var site string
	var flowRaw []byte
	if err := row.Scan(&session.ID, &site, &flowRaw, &session.Version, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(flowRaw, &session.Flow); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}
	session.Site = domain.Site(site)
	return &session, nil
}

// Update writes the session only if its stored version still equals
// session.Version, then bumps the version. A lost race is ErrConflict.
func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	flowJSON, err := json.Marshal(session.Flow)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE movement_sessions
SET step = $2, flow = $3, updated_at = $4, version = version + 1
WHERE id = $1 AND version = $5
`, session.ID, string(session.Flow.Step), flowJSON, session.UpdatedAt, session.Version)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, session)
	}
	session.Version++
	return nil
}

func (r *SessionRepository) missOrConflict(ctx context.Context, session *domain.Session) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM movement_sessions WHERE id = $1)`, session.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrSessionNotFound, "update session", fmt.Errorf("id=%s", session.ID))
	}
	return domain.WrapError(domain.ErrConflict, "update session", fmt.Errorf("id=%s version=%d", session.ID, session.Version))
}
