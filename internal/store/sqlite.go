package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sheetmail/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the send ledger: an append-only journal of row outcomes
// plus a little run metadata. It is never consulted to decide what to send;
// the sheet's Status column alone does that.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets `history` read while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sends (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL DEFAULT '',
	track_id    TEXT    NOT NULL DEFAULT '',
	row_index   INTEGER NOT NULL,
	recipient   TEXT    NOT NULL DEFAULT '',
	sender      TEXT    NOT NULL DEFAULT '',
	subject     TEXT    NOT NULL DEFAULT '',
	message_id  TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	cell        TEXT    NOT NULL DEFAULT '',
	sent_rfc3339 TEXT   NOT NULL
);

CREATE INDEX IF NOT EXISTS sends_recipient ON sends(recipient);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordSends appends outcomes in one transaction.
func (s *SQLiteStore) RecordSends(ctx context.Context, recs []model.SendRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sends (run_id, track_id, row_index, recipient, sender, subject, message_id, status, error, cell, sent_rfc3339)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx, r.RunID, r.TrackID, r.RowIndex, r.Recipient, r.Sender, r.Subject,
			r.MessageID, string(r.Status), r.Error, r.Cell, r.SentAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordSend is RecordSends for a single row, called as each row finishes.
func (s *SQLiteStore) RecordSend(ctx context.Context, rec model.SendRecord) error {
	return s.RecordSends(ctx, []model.SendRecord{rec})
}

const selectSends = `SELECT run_id, track_id, row_index, recipient, sender, subject, message_id, status, error, cell, sent_rfc3339 FROM sends`

// ListSends returns the most recent entries first. limit <= 0 means all.
func (s *SQLiteStore) ListSends(ctx context.Context, limit int) ([]model.SendRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, selectSends+" ORDER BY id DESC LIMIT ?", limit)
}

// SendsTo returns every entry for one recipient, most recent first.
func (s *SQLiteStore) SendsTo(ctx context.Context, recipient string) ([]model.SendRecord, error) {
	return s.query(ctx, selectSends+" WHERE recipient = ? ORDER BY id DESC", recipient)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.SendRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.SendRecord
	for rows.Next() {
		var (
			r              model.SendRecord
			status, sentAt string
		)
		if err := rows.Scan(&r.RunID, &r.TrackID, &r.RowIndex, &r.Recipient, &r.Sender, &r.Subject,
			&r.MessageID, &status, &r.Error, &r.Cell, &sentAt); err != nil {
			return nil, err
		}
		r.Status = model.Status(status)
		if r.SentAt, err = time.Parse(time.RFC3339, sentAt); err != nil {
			return nil, fmt.Errorf("parse sent time %q: %w", sentAt, err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// CountSends counts entries with the given status, or all when status is "".
func (s *SQLiteStore) CountSends(ctx context.Context, status model.Status) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sends").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sends WHERE status = ?", string(status)).Scan(&count)
	}
	return count, err
}

// GetLastRun returns when the last run finished, or the zero time.
func (s *SQLiteStore) GetLastRun(ctx context.Context) (time.Time, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'last_run'").Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, val)
}

func (s *SQLiteStore) SetLastRun(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES ('last_run', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, at.UTC().Format(time.RFC3339))
	return err
}
