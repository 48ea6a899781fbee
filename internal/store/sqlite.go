package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) a SQLite-backed conversation store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the request path and the
	// background persistence consumer.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		conversation_title TEXT,
		timestamp INTEGER NOT NULL,
		input_text TEXT NOT NULL,
		prediction TEXT NOT NULL,
		model_used TEXT NOT NULL,
		complexity_score INTEGER NOT NULL,
		complexity_level TEXT NOT NULL,
		probabilities TEXT,
		response_time REAL,
		generated_response TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_conversations_model ON conversations(model_used);

	CREATE TABLE IF NOT EXISTS stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		metric_name TEXT NOT NULL,
		metric_value REAL NOT NULL,
		metadata TEXT
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// SaveConversation appends one record. Retries with exponential backoff on
// SQLITE_BUSY, which can occur when the purge job holds the write lock.
func (s *SQLiteStore) SaveConversation(ctx context.Context, rec *domain.ConversationRecord) (int64, error) {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		id, err := s.saveOnce(ctx, rec)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if isSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SaveConversation hit SQLITE_BUSY, retrying",
				"session_id", rec.SessionID,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return 0, fmt.Errorf("save conversation: %w", ctx.Err())
			}
		}
		break
	}

	return 0, fmt.Errorf("save conversation: %w: %w", ErrUnavailable, lastErr)
}

func (s *SQLiteStore) saveOnce(ctx context.Context, rec *domain.ConversationRecord) (int64, error) {
	probs, err := json.Marshal(rec.Probabilities)
	if err != nil {
		return 0, fmt.Errorf("marshal probabilities: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var title interface{}
	if rec.Title != "" {
		title = rec.Title
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			session_id, conversation_title, timestamp, input_text, prediction,
			model_used, complexity_score, complexity_level, probabilities,
			response_time, generated_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, title, ts.Unix(), rec.InputText, rec.Prediction,
		rec.ModelUsed, rec.ComplexityScore, rec.ComplexityLevel, string(probs),
		rec.ResponseTime, rec.GeneratedResponse,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SessionHistory returns up to limit records for a session, newest first.
func (s *SQLiteStore) SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.ConversationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, conversation_title, timestamp, input_text,
		       prediction, model_used, complexity_score, complexity_level,
		       probabilities, response_time, generated_response
		FROM conversations
		WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close history rows", "error", closeErr)
		}
	}()

	var records []domain.ConversationRecord
	for rows.Next() {
		var rec domain.ConversationRecord
		var title, probs, generated sql.NullString
		var ts int64
		var responseTime sql.NullFloat64

		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &title, &ts, &rec.InputText,
			&rec.Prediction, &rec.ModelUsed, &rec.ComplexityScore,
			&rec.ComplexityLevel, &probs, &responseTime, &generated,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		rec.Title = title.String
		rec.Timestamp = time.Unix(ts, 0)
		rec.ResponseTime = responseTime.Float64
		rec.GeneratedResponse = generated.String
		if probs.Valid && probs.String != "" {
			if err := json.Unmarshal([]byte(probs.String), &rec.Probabilities); err != nil {
				slog.Warn("corrupt probabilities blob", "id", rec.ID, "error", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

// GlobalStats computes aggregates over the trailing window of days.
func (s *SQLiteStore) GlobalStats(ctx context.Context, days int) (*domain.GlobalStats, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	stats := &domain.GlobalStats{
		PeriodDays:           days,
		ModelDistribution:    make(map[string]int64),
		CategoryDistribution: make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT session_id)
		FROM conversations WHERE timestamp >= ?`, cutoff).
		Scan(&stats.TotalConversations, &stats.UniqueSessions)
	if err != nil {
		return nil, fmt.Errorf("query conversation counts: %w", err)
	}

	if err := s.distribution(ctx, `
		SELECT model_used, COUNT(*) FROM conversations
		WHERE timestamp >= ? GROUP BY model_used`, cutoff, stats.ModelDistribution); err != nil {
		return nil, fmt.Errorf("query model distribution: %w", err)
	}

	if err := s.distribution(ctx, `
		SELECT prediction, COUNT(*) FROM conversations
		WHERE timestamp >= ? GROUP BY prediction`, cutoff, stats.CategoryDistribution); err != nil {
		return nil, fmt.Errorf("query category distribution: %w", err)
	}

	var avg, min, max sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(response_time), MIN(response_time), MAX(response_time)
		FROM conversations
		WHERE timestamp >= ? AND response_time IS NOT NULL`, cutoff).
		Scan(&avg, &min, &max)
	if err != nil {
		return nil, fmt.Errorf("query response times: %w", err)
	}
	stats.ResponseTime = responseTimeStats(avg, min, max)

	var avgComplexity sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(complexity_score) FROM conversations WHERE timestamp >= ?`, cutoff).
		Scan(&avgComplexity)
	if err != nil {
		return nil, fmt.Errorf("query average complexity: %w", err)
	}
	stats.AvgComplexityScore = round2(avgComplexity.Float64)

	return stats, nil
}

func (s *SQLiteStore) distribution(ctx context.Context, query string, cutoff int64, dest map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close distribution rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

// PurgeOlderThan removes records older than the given age in days.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge conversations: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
