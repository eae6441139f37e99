package store

import (
	"context"
	"time"

	"github.com/kouprey/storefront/internal/models"
)

func (s *Store) AddAuditLog(ctx context.Context, actor, action, target, detail string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO audit_logs (actor, action, target, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`, actor, action, target, detail, time.Now().UTC())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, actor, action, target, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.Actor, &l.Action, &l.Target, &l.Detail, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
