package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/solace/internal/domain"
	"github.com/ashureev/solace/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository, creating the file and
// applying migrations as needed.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open database: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets a reader see the old summary while a replacement commits.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// InsertMessage appends a message to the log and sets its Seq.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return fmt.Errorf("insert message: nil message")
	}
	if msg.ID == "" {
		return fmt.Errorf("insert message: empty id")
	}
	if !msg.Sender.Valid() {
		return fmt.Errorf("insert message: unknown sender %q", msg.Sender)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `INSERT INTO messages (id, text, sender, created_at) VALUES (?, ?, ?, ?)`
	return shared.RetryOnConflict(ctx, s.retry, "insert message", func() error {
		result, err := s.db.ExecContext(ctx, query, msg.ID, msg.Text, string(msg.Sender), msg.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		seq, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert message: last insert id: %w", err)
		}
		msg.Seq = seq
		return nil
	})
}

// ListMessages returns the whole log in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	query := `SELECT seq, id, text, sender, created_at FROM messages ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var sender string
		var createdAt int64
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.Text, &sender, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ClearMessages removes every message and returns how many were deleted.
func (s *SQLiteStore) ClearMessages(ctx context.Context) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, s.retry, "clear messages", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
		if err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("clear messages: rows affected: %w", err)
		}
		return nil
	})
	return deleted, err
}

// ClearHistory deletes the message log and resets the summary to "" in one
// transaction.
func (s *SQLiteStore) ClearHistory(ctx context.Context) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, s.retry, "clear history", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("clear history: begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		result, err := tx.ExecContext(ctx, `DELETE FROM messages`)
		if err != nil {
			return fmt.Errorf("clear history: delete messages: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("clear history: rows affected: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM summary`); err != nil {
			return fmt.Errorf("clear history: delete summary: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO summary (content, updated_at) VALUES ('', ?)`,
			time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("clear history: reset summary: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("clear history: commit: %w", err)
		}
		deleted = n
		return nil
	})
	return deleted, err
}

// ReplaceSummary swaps the rolling summary inside a single transaction so a
// concurrent reader sees either the old or the new record, never neither.
func (s *SQLiteStore) ReplaceSummary(ctx context.Context, content string) error {
	return shared.RetryOnConflict(ctx, s.retry, "replace summary", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("replace summary: begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM summary`); err != nil {
			return fmt.Errorf("replace summary: delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO summary (content, updated_at) VALUES (?, ?)`,
			content, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("replace summary: insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("replace summary: commit: %w", err)
		}
		return nil
	})
}

// GetSummary returns the rolling summary, or "" if none was written yet.
func (s *SQLiteStore) GetSummary(ctx context.Context) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM summary ORDER BY id DESC LIMIT 1`).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get summary: %w", err)
	}
	return content, nil
}

// GetValue reads a key/value setting.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue creates or overwrites a key/value setting.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, s.retry, "set "+key, func() error {
		if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("set setting %s: %w", key, err)
		}
		return nil
	})
}

// GetProfile returns the onboarding profile, or nil if onboarding never ran.
func (s *SQLiteStore) GetProfile(ctx context.Context) (*domain.UserProfile, error) {
	raw, ok, err := s.GetValue(ctx, domain.ProfileKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile stores the onboarding profile blob.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("save profile: nil profile")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.SetValue(ctx, domain.ProfileKey, string(data))
}

// InsertCheckup appends a completed checkup record and sets its ID.
func (s *SQLiteStore) InsertCheckup(ctx context.Context, rec *domain.CheckupRecord) error {
	if rec == nil {
		return fmt.Errorf("insert checkup: nil record")
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	query := `INSERT INTO checkups (phq_score, gad_score, completed_at) VALUES (?, ?, ?)`
	return shared.RetryOnConflict(ctx, s.retry, "insert checkup", func() error {
		result, err := s.db.ExecContext(ctx, query, rec.PHQScore, rec.GADScore, rec.CompletedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert checkup: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert checkup: last insert id: %w", err)
		}
		rec.ID = id
		return nil
	})
}

// ListCheckups returns completed checkups, oldest first.
func (s *SQLiteStore) ListCheckups(ctx context.Context) ([]domain.CheckupRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, phq_score, gad_score, completed_at FROM checkups ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query checkups: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close checkup rows", "error", closeErr)
		}
	}()

	var records []domain.CheckupRecord
	for rows.Next() {
		var rec domain.CheckupRecord
		var completedAt int64
		if err := rows.Scan(&rec.ID, &rec.PHQScore, &rec.GADScore, &completedAt); err != nil {
			return nil, fmt.Errorf("scan checkup row: %w", err)
		}
		rec.CompletedAt = time.UnixMilli(completedAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkups: %w", err)
	}
	return records, nil
}

// Ensure SQLiteStore implements Repository.
var _ Repository = (*SQLiteStore)(nil)
