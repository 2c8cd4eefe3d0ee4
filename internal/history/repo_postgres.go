package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresRepo persists call history in Postgres.
// The table is insert-only; nothing here issues UPDATE.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, rec CallRecord) error {
	const q = `
INSERT INTO call_records (id, student_name, staff_name, status, duration, recording_url, started_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.StudentName, rec.StaffName, string(rec.Status),
		rec.DurationSeconds, rec.RecordingURL, rec.StartedAt, rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]CallRecord, error) {
	var b strings.Builder
	b.WriteString(`
SELECT id, student_name, staff_name, status, duration, recording_url, started_at, created_at
FROM call_records
WHERE 1=1`)

	args := make([]any, 0, 4)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.From.IsZero() {
		b.WriteString(" AND started_at >= " + arg(f.From))
	}
	if !f.To.IsZero() {
		b.WriteString(" AND started_at < " + arg(f.To))
	}
	if f.Status != "" {
		b.WriteString(" AND status = " + arg(string(f.Status)))
	}
	if f.StudentName != "" {
		b.WriteString(" AND lower(student_name) = lower(" + arg(f.StudentName) + ")")
	}
	b.WriteString(" ORDER BY started_at")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		var rec CallRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.StudentName, &rec.StaffName, &status,
			&rec.DurationSeconds, &rec.RecordingURL, &rec.StartedAt, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Status = CallStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Clear(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM call_records`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
