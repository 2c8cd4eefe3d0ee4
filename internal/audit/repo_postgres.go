package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events. The table is insert-only; no
// update or delete statements exist in this package.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_events
			(id, action, actor_user_id, actor_name, actor_role, target_id, target_name, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Action, e.ActorUserID, e.ActorName, e.ActorRole,
		nullString(e.TargetID), nullString(e.TargetName), nullString(e.Detail),
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Event, error) {
	const q = `
		SELECT id, action, actor_user_id, actor_name, actor_role,
		       COALESCE(target_id, ''), COALESCE(target_name, ''), COALESCE(detail, ''),
		       created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.Action, &e.ActorUserID, &e.ActorName, &e.ActorRole,
			&e.TargetID, &e.TargetName, &e.Detail, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
