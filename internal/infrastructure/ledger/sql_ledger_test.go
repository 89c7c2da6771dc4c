package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"AckeeVeille/internal/domain"
)

func testRun() domain.Run {
	started := time.Date(2026, 1, 19, 8, 0, 0, 0, time.UTC)
	return domain.Run{
		ID:        "6f1c1b52-2a57-4d0c-9d7c-0b3fd1b0a001",
		Window:    domain.NewRunWindow(started),
		State:     domain.StateCollecting,
		StartedAt: started,
	}
}

func TestStartInsertsRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	run := testRun()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO veille_runs (id,week_label,window_start,window_end,state,started_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)")).
		WithArgs(run.ID, "03/2026", run.Window.Start, run.Window.End, "COLLECTING", run.StartedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := New(db, "postgres").Start(context.Background(), run); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvanceReportsUnknownRun(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE veille_runs SET state = ?, updated_at = ? WHERE id = ?")).
		WithArgs("SYNTHESIZING", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(db, "sqlite").Advance(context.Background(), "missing", domain.StateSynthesizing); err == nil {
		t.Fatalf("expected error for unknown run")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinishWritesOutcome(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	run := testRun()
	run.State = domain.StateFailed
	summary := domain.RunSummary{
		Run:        run,
		TotalItems: 42,
		CorpusPath: "reports/raw_data_s03_2026.json",
		Model:      "claude-sonnet-4-5-20250929",
		FinishedAt: run.StartedAt.Add(90 * time.Second),
		Err:        &domain.StageError{Stage: domain.StateSynthesizing, Err: domain.ErrSynthesis},
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE veille_runs SET state = $1")).
		WithArgs("FAILED", 42, summary.Model, summary.CorpusPath, "", "", "SYNTHESIZING: synthesis failed",
			sqlmock.AnyArg(), summary.FinishedAt, int64(90000), run.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(db, "postgres").Finish(context.Background(), summary); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinishPropagatesDriverError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("disk full")
	mock.ExpectExec("UPDATE veille_runs").WillReturnError(boom)

	err = New(db, "sqlite").Finish(context.Background(), domain.RunSummary{Run: testRun()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	ledger, err := Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer ledger.Close()

	ctx := context.Background()
	if err := ledger.Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	run := testRun()
	if err := ledger.Start(ctx, run); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := ledger.Advance(ctx, run.ID, domain.StateBuildingContext); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	run.State = domain.StateDone
	err = ledger.Finish(ctx, domain.RunSummary{
		Run:        run,
		TotalItems: 7,
		Artifacts:  &domain.ReportArtifacts{DocumentPath: "a.md", MessagePath: "a.eml"},
		FinishedAt: run.StartedAt.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}

	var (
		state    string
		items    int
		document string
	)
	row := ledger.db.QueryRowContext(ctx, "SELECT state, total_items, document_path FROM veille_runs WHERE id = ?", run.ID)
	if err := row.Scan(&state, &items, &document); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if state != "DONE" || items != 7 || document != "a.md" {
		t.Fatalf("unexpected row: %s %d %s", state, items, document)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open("mongo", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
