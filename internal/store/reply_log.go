package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/replykit/replykit/internal/reply"
)

// DefaultReplyLogLimit bounds ListReplies when no limit is given.
const DefaultReplyLogLimit = 20

// ReplyLogEntry is the stored metadata of one reply. User text and generated
// text are never stored.
type ReplyLogEntry struct {
	ID         int64
	RequestID  string
	Kind       string
	Attempts   int
	StatusCode int
	Duration   time.Duration
	CreatedAt  time.Time
}

// RecordReply implements reply.Recorder.
func (s *Store) RecordReply(ctx context.Context, rec reply.Record) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	var status sql.NullInt64
	if rec.StatusCode > 0 {
		status = sql.NullInt64{Int64: int64(rec.StatusCode), Valid: true}
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reply_log (request_id, kind, attempts, status_code, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.Kind.String(), rec.Attempts, status, rec.Duration.Milliseconds(), at.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store reply log: %w", err)
	}
	return nil
}

// ListReplies returns the most recent entries, newest first.
func (s *Store) ListReplies(ctx context.Context, limit int) ([]ReplyLogEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = DefaultReplyLogLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, request_id, kind, attempts, status_code, duration_ms, created_at
		FROM reply_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reply log: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []ReplyLogEntry{}
	for rows.Next() {
		var (
			entry      ReplyLogEntry
			status     sql.NullInt64
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.Kind, &entry.Attempts, &status, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan reply log: %w", err)
		}
		if status.Valid {
			entry.StatusCode = int(status.Int64)
		}
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entry.CreatedAt = time.UnixMilli(createdMs).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reply log: %w", err)
	}
	return entries, nil
}
