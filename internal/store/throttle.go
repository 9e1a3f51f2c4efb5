package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ThrottleEntry is one persisted last-request timestamp.
type ThrottleEntry struct {
	Endpoint      string
	LastRequestAt time.Time
}

// ThrottleQuery selects throttle rows for list and reset.
type ThrottleQuery struct {
	All      bool
	Endpoint string
}

// Validate requires either All or an endpoint.
func (q ThrottleQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Endpoint) != "" {
		return nil
	}
	return errors.New("must specify --all or --endpoint")
}

func (q ThrottleQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	return "WHERE endpoint = ?", []any{strings.TrimSpace(q.Endpoint)}, nil
}

// GetLastRequest returns the stored completion time of the last request to
// endpoint, or the zero time when none is stored.
func (s *Store) GetLastRequest(ctx context.Context, endpoint string) (time.Time, error) {
	if s == nil || s.DB == nil {
		return time.Time{}, errNotInitialized
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return time.Time{}, errors.New("endpoint is required")
	}

	var lastMs int64
	row := s.DB.QueryRowContext(ctx, `SELECT last_request_at FROM throttle_state WHERE endpoint = ?`, endpoint)
	if err := row.Scan(&lastMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("fetch throttle state: %w", err)
	}
	return time.UnixMilli(lastMs).UTC(), nil
}

// SetLastRequest stores at as the completion time of the last request.
// An older timestamp never replaces a newer one.
func (s *Store) SetLastRequest(ctx context.Context, endpoint string, at time.Time) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return errors.New("endpoint is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO throttle_state (endpoint, last_request_at)
		VALUES (?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			last_request_at = MAX(last_request_at, excluded.last_request_at)
	`, endpoint, at.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store throttle state: %w", err)
	}
	return nil
}

// ListThrottle returns persisted throttle rows ordered by endpoint.
func (s *Store) ListThrottle(ctx context.Context, q ThrottleQuery) ([]ThrottleEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT endpoint, last_request_at
		FROM throttle_state
		%s
		ORDER BY endpoint
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list throttle state: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []ThrottleEntry{}
	for rows.Next() {
		var (
			endpoint string
			lastMs   int64
		)
		if err := rows.Scan(&endpoint, &lastMs); err != nil {
			return nil, fmt.Errorf("scan throttle state: %w", err)
		}
		entries = append(entries, ThrottleEntry{Endpoint: endpoint, LastRequestAt: time.UnixMilli(lastMs).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list throttle state: %w", err)
	}
	return entries, nil
}

// ResetThrottle deletes matching rows and returns how many were removed.
func (s *Store) ResetThrottle(ctx context.Context, q ThrottleQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM throttle_state %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset throttle state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset throttle state: %w", err)
	}
	return affected, nil
}
