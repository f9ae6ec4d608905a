package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvtran/goldenbell/internal/auth/jwt"
	"github.com/hvtran/goldenbell/internal/db/repository"
)

// stubDB serves one canned teacher row keyed by teacher code or ID and
// captures inserts.
type stubDB struct {
	teacher  *repository.Teacher
	inserted *repository.Teacher
}

func (s *stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubDB) QueryRow(_ context.Context, q string, args ...any) pgx.Row {
	if strings.HasPrefix(strings.TrimSpace(q), "INSERT") {
		s.inserted = &repository.Teacher{
			TeacherCode:  args[0].(string),
			FullName:     args[1].(string),
			PasswordHash: args[2].(string),
		}
		return &insertedRow{}
	}
	if s.teacher != nil && len(args) == 1 && (args[0] == s.teacher.TeacherCode || args[0] == s.teacher.ID) {
		return &teacherRow{t: s.teacher}
	}
	return &teacherRow{err: pgx.ErrNoRows}
}

// insertedRow satisfies the INSERT ... RETURNING id, created_at scan.
type insertedRow struct{}

func (r *insertedRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = "teacher-2"
	*(dest[1].(*time.Time)) = time.Now()
	return nil
}

type teacherRow struct {
	t   *repository.Teacher
	err error
}

func (r *teacherRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.t.ID
	*(dest[1].(*string)) = r.t.TeacherCode
	*(dest[2].(*string)) = r.t.FullName
	*(dest[3].(*string)) = r.t.PasswordHash
	*(dest[4].(*time.Time)) = r.t.CreatedAt
	*(dest[5].(**time.Time)) = r.t.LastLoginAt
	return nil
}

func newTestService(t *testing.T, password string) *Service {
	svc, _ := newTestServiceDB(t, password)
	return svc
}

func newTestServiceDB(t *testing.T, password string) (*Service, *stubDB) {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	db := &stubDB{teacher: &repository.Teacher{
		ID:           "teacher-1",
		TeacherCode:  "GV001",
		FullName:     "Thầy Minh",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}}
	svc := NewService(repository.NewTeacherRepository(db), jwt.TokenConfig{
		Secret: []byte("test-secret"),
	}, zerolog.New(io.Discard))
	return svc, db
}

func TestLoginSuccess(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	resp, err := svc.Login(context.Background(), LoginRequest{TeacherCode: "GV001", Password: "matkhau123"})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", resp.TeacherID)
	assert.Equal(t, "Thầy Minh", resp.DisplayName)

	claims, err := svc.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleHost, claims.Role)
	assert.Equal(t, "teacher-1", claims.SubjectID)
	assert.Empty(t, claims.RoomCode, "host tokens are not room-bound")
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Login(context.Background(), LoginRequest{TeacherCode: "GV001", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginUnknownCode(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Login(context.Background(), LoginRequest{TeacherCode: "GV999", Password: "matkhau123"})
	assert.ErrorIs(t, err, ErrBadCredentials, "unknown code and wrong password are indistinguishable")
}

func TestLoginEmptyFields(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Login(context.Background(), LoginRequest{})
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestStudentTokenIsRoomBound(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	resp, err := svc.StudentToken(context.Background(), StudentTokenRequest{
		DisplayName: "An",
		RoomCode:    "abc123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SubjectID)
	assert.Equal(t, "ABC123", resp.RoomCode)

	claims, err := svc.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.Equal(t, "ABC123", claims.RoomCode)
	assert.Equal(t, "An", claims.DisplayName)
}

func TestStudentTokenRequiresName(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.StudentToken(context.Background(), StudentTokenRequest{RoomCode: "ABC123"})
	assert.ErrorIs(t, err, ErrBadDisplayName)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestRegisterCreatesTeacher(t *testing.T) {
	svc, db := newTestServiceDB(t, "matkhau123")

	resp, err := svc.Register(context.Background(), RegisterRequest{
		TeacherCode: "GV002",
		FullName:    "Cô Lan",
		Password:    "matkhau456",
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-2", resp.TeacherID)
	assert.Equal(t, "GV002", resp.TeacherCode)

	require.NotNil(t, db.inserted)
	assert.Equal(t, "GV002", db.inserted.TeacherCode)
	assert.NotEqual(t, "matkhau456", db.inserted.PasswordHash, "password stored hashed")
	assert.NoError(t, VerifyPassword(db.inserted.PasswordHash, "matkhau456"))
}

func TestRegisterRejectsTakenCode(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Register(context.Background(), RegisterRequest{
		TeacherCode: "GV001",
		FullName:    "Cô Lan",
		Password:    "matkhau456",
	})
	assert.ErrorIs(t, err, ErrTeacherCodeTaken)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Register(context.Background(), RegisterRequest{
		TeacherCode: "GV002",
		FullName:    "Cô Lan",
		Password:    "ngan",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterRequiresCodeAndName(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	_, err := svc.Register(context.Background(), RegisterRequest{Password: "matkhau456"})
	assert.ErrorIs(t, err, ErrBadRegistration)
}

func TestProfileReturnsOwnRecord(t *testing.T) {
	svc := newTestService(t, "matkhau123")

	profile, err := svc.Profile(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "GV001", profile.TeacherCode)
	assert.Equal(t, "Thầy Minh", profile.FullName)

	_, err = svc.Profile(context.Background(), "teacher-404")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
