package postgres

import (
	"context"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/jackc/pgx/v5"
)

// InsertAuditLogs ignores ids that already exist so redelivery is harmless.
func (s *Store) InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	query := `
		INSERT INTO audit_logs (id, entity_id, entity_type, user_id, action, previous_value, new_value, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, l := range logs {
			_, err := tx.Exec(ctx, query,
				l.ID,
				l.EntityID,
				string(l.EntityType),
				l.UserID,
				string(l.Action),
				l.PreviousValue,
				l.NewValue,
				l.Timestamp,
			)
			if err != nil {
				return mapError("insert audit log", err)
			}
		}
		return nil
	})
}

func (s *Store) ListAuditLogs(ctx context.Context) ([]types.AuditLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, entity_id, entity_type, user_id, action, previous_value, new_value, timestamp
		FROM audit_logs
		ORDER BY timestamp`)
	if err != nil {
		return nil, mapError("list audit logs", err)
	}
	defer rows.Close()

	var logs []types.AuditLog
	for rows.Next() {
		var (
			l                  types.AuditLog
			entityType, action string
		)
		if err := rows.Scan(&l.ID, &l.EntityID, &entityType, &l.UserID, &action,
			&l.PreviousValue, &l.NewValue, &l.Timestamp); err != nil {
			return nil, mapError("scan audit log", err)
		}
		l.EntityType = types.EntityType(entityType)
		l.Action = types.AuditAction(action)
		logs = append(logs, l)
	}
	return logs, mapError("list audit logs", rows.Err())
}
