package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/flow"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestSessionGetByIDReturnsDomainNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT id, site, flow").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionGetByIDDecodesFlow(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	analysis := color.Analyze(color.RGB{R: 255, G: 210, B: 63})
	state := flow.Result{Image: flow.Image{Key: "s-1/img.png"}, Caption: "noon", Analysis: analysis}
	raw, err := json.Marshal(flow.Take(state))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, site, flow").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "site", "flow", "version", "created_at", "updated_at"}).
			AddRow("s-1", "invitation", raw, int64(4), now, now))

	session, err := repo.GetByID(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if session.Site != domain.SiteInvitation || session.Flow.Step != flow.StepResult || session.Version != 4 {
		t.Fatalf("unexpected session %+v", session)
	}
	restored, err := flow.Restore(session.Flow)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.(flow.Result).Analysis.Brand.Name != analysis.Brand.Name {
		t.Fatalf("unexpected restored state %+v", restored)
	}
}

func TestSessionCreateWritesStep(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO movement_sessions").
		WithArgs("s-1", "main", "upload", []byte(`{"step":"upload"}`), int64(0), now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &domain.Session{
		ID:        "s-1",
		Site:      domain.SiteMain,
		Flow:      flow.Take(flow.Upload{}),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionUpdateReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE movement_sessions").
		WithArgs("missing", "upload", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Update(context.Background(), &domain.Session{ID: "missing", Flow: flow.Take(flow.Upload{})})
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionUpdateBumpsVersion(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	mock.ExpectExec(`SET step = \$2, flow = \$3, updated_at = \$4, version = version \+ 1`).
		WithArgs("s-1", "upload", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &domain.Session{ID: "s-1", Flow: flow.Take(flow.Upload{}), Version: 2}
	if err := repo.Update(context.Background(), session); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if session.Version != 3 {
		t.Fatalf("expected version 3 after update, got %d", session.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionUpdateStaleVersionIsConflict(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE movement_sessions").
		WithArgs("s-1", "edit", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	session := &domain.Session{ID: "s-1", Flow: flow.Take(flow.Edit{Image: flow.Image{Key: "s-1/b.png"}}), Version: 1}
	err := repo.Update(context.Background(), session)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if session.Version != 1 {
		t.Fatalf("failed update must not bump the version, got %d", session.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSurveyListScansNullableColumns(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSurveyRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, site, session_id, rating, answers, comment, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "site", "session_id", "rating", "answers", "comment", "created_at"}).
			AddRow("r1", "main", nil, 5, []byte(`{"visit_reason":"friends"}`), "great", now).
			AddRow("r2", "invitation", "s-9", 3, []byte(`{}`), nil, now))

	responses, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Answers["visit_reason"] != "friends" || responses[0].SessionID != "" || responses[0].Comment != "great" {
		t.Fatalf("unexpected first response %+v", responses[0])
	}
	if responses[1].Site != domain.SiteInvitation || responses[1].SessionID != "s-9" || responses[1].Comment != "" {
		t.Fatalf("unexpected second response %+v", responses[1])
	}
}

func TestSurveyCreateStoresEmptyAnswersObject(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewSurveyRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO survey_responses").
		WithArgs("r1", "main", sqlmock.AnyArg(), 4, []byte(`{}`), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &domain.SurveyResponse{ID: "r1", Site: domain.SiteMain, Rating: 4, CreatedAt: now})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPaletteStatsIncrementUpserts(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewPaletteStatsRepository(db)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO palette_stats .* ON CONFLICT").
		WithArgs(day, "pink", "Violet").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Increment(context.Background(), day, "pink", "Violet"); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPaletteStatsListByDay(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewPaletteStatsRepository(db)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT day, brand_color, refined_color, count").
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"day", "brand_color", "refined_color", "count"}).
			AddRow(day, "orange", "Tangerine", 7).
			AddRow(day, "pink", "Violet", 2))

	stats, err := repo.ListByDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ListByDay() error = %v", err)
	}
	if len(stats) != 2 || stats[0].RefinedColor != "Tangerine" || stats[0].Count != 7 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS movement_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
