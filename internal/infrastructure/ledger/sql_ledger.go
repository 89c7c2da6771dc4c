package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/ports"
)

const table = "veille_runs"

const schema = `CREATE TABLE IF NOT EXISTS veille_runs (
    id            TEXT PRIMARY KEY,
    week_label    TEXT NOT NULL,
    window_start  TIMESTAMP NOT NULL,
    window_end    TIMESTAMP NOT NULL,
    state         TEXT NOT NULL,
    total_items   INTEGER NOT NULL DEFAULT 0,
    model         TEXT NOT NULL DEFAULT '',
    corpus_path   TEXT NOT NULL DEFAULT '',
    document_path TEXT NOT NULL DEFAULT '',
    message_path  TEXT NOT NULL DEFAULT '',
    error_text    TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL,
    finished_at   TIMESTAMP,
    duration_ms   BIGINT NOT NULL DEFAULT 0
)`

// SQLLedger records one row per run in SQLite or Postgres.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.RunLedger = (*SQLLedger)(nil)

// Open connects to the ledger database. Supported drivers are "sqlite" and "postgres".
func Open(driver, dsn string) (*SQLLedger, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return New(db, driver), nil
}

// New wires an existing sql.DB; driver selects the placeholder format.
func New(db *sql.DB, driver string) *SQLLedger {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}
	return &SQLLedger{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Migrate creates the runs table when it does not exist yet.
func (l *SQLLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Start inserts the run row.
func (l *SQLLedger) Start(ctx context.Context, run domain.Run) error {
	query, args, err := l.builder.
		Insert(table).
		Columns("id", "week_label", "window_start", "window_end", "state", "started_at", "updated_at").
		Values(run.ID, run.Window.WeekLabel(), run.Window.Start.UTC(), run.Window.End.UTC(), string(run.State), run.StartedAt.UTC(), l.now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Advance records a state transition.
func (l *SQLLedger) Advance(ctx context.Context, runID string, state domain.RunState) error {
	query, args, err := l.builder.
		Update(table).
		Set("state", string(state)).
		Set("updated_at", l.now().UTC()).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	return l.exec(ctx, runID, query, args)
}

// Finish writes the terminal state and run outcome.
func (l *SQLLedger) Finish(ctx context.Context, summary domain.RunSummary) error {
	var documentPath, messagePath string
	if summary.Artifacts != nil {
		documentPath = summary.Artifacts.DocumentPath
		messagePath = summary.Artifacts.MessagePath
	}
	errText := ""
	if summary.Err != nil {
		errText = summary.Err.Error()
	}

	query, args, err := l.builder.
		Update(table).
		Set("state", string(summary.Run.State)).
		Set("total_items", summary.TotalItems).
		Set("model", summary.Model).
		Set("corpus_path", summary.CorpusPath).
		Set("document_path", documentPath).
		Set("message_path", messagePath).
		Set("error_text", errText).
		Set("updated_at", l.now().UTC()).
		Set("finished_at", summary.FinishedAt.UTC()).
		Set("duration_ms", summary.Duration().Milliseconds()).
		Where(sq.Eq{"id": summary.Run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	return l.exec(ctx, summary.Run.ID, query, args)
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}

func (l *SQLLedger) exec(ctx context.Context, runID, query string, args []any) error {
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: rows affected: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update run %s: no such run", runID)
	}
	return nil
}

// Nop is the ledger used when recording is disabled.
type Nop struct{}

var _ ports.RunLedger = Nop{}

func (Nop) Start(context.Context, domain.Run) error                { return nil }
func (Nop) Advance(context.Context, string, domain.RunState) error { return nil }
func (Nop) Finish(context.Context, domain.RunSummary) error        { return nil }
