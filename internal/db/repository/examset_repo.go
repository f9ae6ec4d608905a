package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hvtran/goldenbell/internal/question"
)

// ExamSetRepository persists exam sets. Rounds are stored as a JSONB
// document: the arena always loads a set whole, so there is nothing to
// gain from normalizing questions into rows.
type ExamSetRepository struct {
	db DB
}

func NewExamSetRepository(db DB) *ExamSetRepository {
	return &ExamSetRepository{db: db}
}

var _ question.SetStore = (*ExamSetRepository)(nil)

// GetSet fetches one exam set. Returns nil when absent, matching the
// cache-miss contract of question.SetStore.
func (r *ExamSetRepository) GetSet(ctx context.Context, setID string) (*question.Set, error) {
	const q = `
		SELECT id, teacher_id, title, topic, grade, subject, rounds, created_at
		FROM exam_sets
		WHERE id = $1`
	set, err := scanSet(r.db.QueryRow(ctx, q, setID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return set, nil
}

// ListSets returns a teacher's sets, newest first.
func (r *ExamSetRepository) ListSets(ctx context.Context, teacherID string) ([]question.Set, error) {
	const q = `
		SELECT id, teacher_id, title, topic, grade, subject, rounds, created_at
		FROM exam_sets
		WHERE teacher_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []question.Set
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *set)
	}
	return sets, rows.Err()
}

// SaveSet inserts or updates a set. Sets without an ID get one from the
// database.
func (r *ExamSetRepository) SaveSet(ctx context.Context, set *question.Set) error {
	rounds, err := json.Marshal(set.Rounds)
	if err != nil {
		return fmt.Errorf("encode rounds: %w", err)
	}
	if set.ID == "" {
		const q = `
			INSERT INTO exam_sets (teacher_id, title, topic, grade, subject, rounds)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`
		return r.db.QueryRow(ctx, q, set.TeacherID, set.Title, set.Topic, set.Grade, set.Subject, rounds).
			Scan(&set.ID, &set.CreatedAt)
	}
	const q = `
		UPDATE exam_sets
		SET title = $2, topic = $3, grade = $4, subject = $5, rounds = $6
		WHERE id = $1 AND teacher_id = $7`
	tag, err := r.db.Exec(ctx, q, set.ID, set.Title, set.Topic, set.Grade, set.Subject, rounds, set.TeacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSet removes a set, scoped to its owning teacher.
func (r *ExamSetRepository) DeleteSet(ctx context.Context, setID, teacherID string) error {
	const q = `DELETE FROM exam_sets WHERE id = $1 AND teacher_id = $2`
	tag, err := r.db.Exec(ctx, q, setID, teacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRoom records which set a room code is running, so a host crash
// does not lose the room-to-set mapping.
func (r *ExamSetRepository) AssignRoom(ctx context.Context, roomCode, setID, teacherID string) error {
	const q = `
		INSERT INTO room_assignments (room_code, set_id, teacher_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_code)
		DO UPDATE SET set_id = EXCLUDED.set_id, teacher_id = EXCLUDED.teacher_id, assigned_at = now()`
	_, err := r.db.Exec(ctx, q, roomCode, setID, teacherID)
	return err
}

// RoomAssignment looks up the set assigned to a room code.
func (r *ExamSetRepository) RoomAssignment(ctx context.Context, roomCode string) (setID string, err error) {
	const q = `SELECT set_id FROM room_assignments WHERE room_code = $1`
	if err := r.db.QueryRow(ctx, q, roomCode).Scan(&setID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return setID, nil
}

// ClearRoomAssignment drops the mapping when the host closes the room.
func (r *ExamSetRepository) ClearRoomAssignment(ctx context.Context, roomCode string) error {
	const q = `DELETE FROM room_assignments WHERE room_code = $1`
	_, err := r.db.Exec(ctx, q, roomCode)
	return err
}

func scanSet(row pgx.Row) (*question.Set, error) {
	var (
		set    question.Set
		rounds []byte
	)
	if err := row.Scan(&set.ID, &set.TeacherID, &set.Title, &set.Topic, &set.Grade, &set.Subject, &rounds, &set.CreatedAt); err != nil {
		return nil, err
	}
	if len(rounds) > 0 {
		if err := json.Unmarshal(rounds, &set.Rounds); err != nil {
			return nil, fmt.Errorf("decode rounds: %w", err)
		}
	}
	return &set, nil
}
