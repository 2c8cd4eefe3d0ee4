package directory

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists the roster in Postgres.
// Assumes the students and staff tables from the embedded migrations.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateStudent(ctx context.Context, s Student) error {
	const q = `
INSERT INTO students (id, name, phone, parent, email, notes, added_by, added_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Name, s.Phone, s.Parent, s.Email, s.Notes, s.AddedBy, s.AddedAt,
	)
	return err
}

func (r *PostgresRepo) UpdateStudent(ctx context.Context, s Student) error {
	const q = `
UPDATE students
SET name = $2, phone = $3, parent = $4, email = $5, notes = $6, updated_by = $7, updated_at = $8
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		s.ID, s.Name, s.Phone, s.Parent, s.Email, s.Notes,
		nullString(s.UpdatedBy), s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) GetStudent(ctx context.Context, id string) (Student, error) {
	const q = `
SELECT id, name, phone, parent, email, notes, added_by, added_at, updated_by, updated_at
FROM students
WHERE id = $1
`
	return scanStudent(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) ListStudents(ctx context.Context) ([]Student, error) {
	const q = `
SELECT id, name, phone, parent, email, notes, added_by, added_at, updated_by, updated_at
FROM students
ORDER BY added_at
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateStaff(ctx context.Context, s Staff) error {
	const q = `
INSERT INTO staff (id, name, email, role, password_hash, added_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Name, s.Email, s.Role, s.PasswordHash, s.AddedAt)
	return err
}

func (r *PostgresRepo) UpdateStaff(ctx context.Context, s Staff) error {
	const q = `
UPDATE staff
SET name = $2, role = $3, password_hash = $4
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, s.ID, s.Name, s.Role, s.PasswordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteStaff(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) GetStaff(ctx context.Context, id string) (Staff, error) {
	const q = `
SELECT id, name, email, role, password_hash, added_at
FROM staff
WHERE id = $1
`
	return scanStaff(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	const q = `
SELECT id, name, email, role, password_hash, added_at
FROM staff
WHERE email = $1
`
	return scanStaff(r.db.QueryRowContext(ctx, q, email))
}

func (r *PostgresRepo) ListStaff(ctx context.Context) ([]Staff, error) {
	const q = `
SELECT id, name, email, role, password_hash, added_at
FROM staff
ORDER BY added_at
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Staff, 0)
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (Student, error) {
	var s Student
	var updatedBy sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Name, &s.Phone, &s.Parent, &s.Email, &s.Notes,
		&s.AddedBy, &s.AddedAt, &updatedBy, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	if updatedBy.Valid {
		s.UpdatedBy = updatedBy.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		s.UpdatedAt = &t
	}
	return s, nil
}

func scanStaff(row rowScanner) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Role, &s.PasswordHash, &s.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Staff{}, ErrNotFound
		}
		return Staff{}, err
	}
	return s, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
