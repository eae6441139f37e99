package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kouprey/storefront/internal/models"
)

func (s *Store) InsertLog(ctx context.Context, e models.LogEntry) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO system_logs (level, message, created_at) VALUES (?, ?, ?)`,
		e.Level, e.Message, e.CreatedAt)
	return err
}

// RecentLogs returns the newest limit entries in chronological order.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT level, message, created_at
		FROM system_logs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// LastLogWithPrefix returns when a message starting with prefix was last
// recorded.
func (s *Store) LastLogWithPrefix(ctx context.Context, prefix string) (time.Time, error) {
	var at time.Time
	err := s.DB.QueryRowContext(ctx, `
		SELECT created_at FROM system_logs
		WHERE substr(message, 1, length(?)) = ?
		ORDER BY id DESC
		LIMIT 1`, prefix, prefix).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	return at, err
}
