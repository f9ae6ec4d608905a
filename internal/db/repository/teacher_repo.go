package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx query surface the repositories need, satisfied by
// *pgxpool.Pool and by pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var ErrNotFound = errors.New("not found")

// Teacher is a host account. Teachers log in with their staff code.
type Teacher struct {
	ID           string
	TeacherCode  string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// TeacherRepository exposes typed DB operations required by auth flows.
type TeacherRepository struct {
	db DB
}

func NewTeacherRepository(db DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// GetByCode fetches a teacher by staff code.
func (r *TeacherRepository) GetByCode(ctx context.Context, teacherCode string) (*Teacher, error) {
	const q = `
		SELECT id, teacher_code, full_name, password_hash, created_at, last_login_at
		FROM teachers
		WHERE teacher_code = $1`
	return r.scanTeacher(r.db.QueryRow(ctx, q, teacherCode))
}

// GetByID fetches a teacher by primary key.
func (r *TeacherRepository) GetByID(ctx context.Context, id string) (*Teacher, error) {
	const q = `
		SELECT id, teacher_code, full_name, password_hash, created_at, last_login_at
		FROM teachers
		WHERE id = $1`
	return r.scanTeacher(r.db.QueryRow(ctx, q, id))
}

// Create inserts a teacher account and returns the generated ID.
func (r *TeacherRepository) Create(ctx context.Context, t *Teacher) error {
	const q = `
		INSERT INTO teachers (teacher_code, full_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, q, t.TeacherCode, t.FullName, t.PasswordHash).
		Scan(&t.ID, &t.CreatedAt)
}

// UpdateLogin records the last login timestamp.
func (r *TeacherRepository) UpdateLogin(ctx context.Context, id string) error {
	const q = `UPDATE teachers SET last_login_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *TeacherRepository) scanTeacher(row pgx.Row) (*Teacher, error) {
	var t Teacher
	err := row.Scan(&t.ID, &t.TeacherCode, &t.FullName, &t.PasswordHash, &t.CreatedAt, &t.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
