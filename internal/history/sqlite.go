package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink appends events to a local SQLite database.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens the database and creates the schema if missing.
func NewSQLiteSink(dsn string) (*SQLiteSink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	s := &SQLiteSink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS watchdog_history(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurred_at TIMESTAMP NOT NULL,
		event TEXT NOT NULL,
		outcome TEXT NOT NULL,
		failures INTEGER NOT NULL,
		detail TEXT NULL
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *SQLiteSink) Send(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchdog_history(occurred_at, event, outcome, failures, detail)
		VALUES(?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), string(e.Type), e.Outcome, e.Failures, nullable(e.Detail))
	return err
}

// Recent returns the newest events, most recent first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, event, outcome, failures, COALESCE(detail, '')
		FROM watchdog_history ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var typ string
		var occurred time.Time
		if err := rows.Scan(&occurred, &typ, &e.Outcome, &e.Failures, &e.Detail); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		e.OccurredAt = occurred
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
