package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/auth/jwt"
	"github.com/hvtran/goldenbell/internal/db/repository"
)

var (
	ErrBadCredentials   = errors.New("invalid teacher code or password")
	ErrBadDisplayName   = errors.New("display name required")
	ErrBadRegistration  = errors.New("teacher code and full name required")
	ErrTeacherCodeTaken = errors.New("teacher code already in use")
)

// Service handles teacher login and guest student tokens.
type Service struct {
	teachers *repository.TeacherRepository
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

// NewService creates an authentication service.
func NewService(teachers *repository.TeacherRepository, tokenCfg jwt.TokenConfig, logger zerolog.Logger) *Service {
	return &Service{
		teachers: teachers,
		tokenMgr: jwt.NewManager(tokenCfg),
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Login authenticates a teacher by staff code and password and returns a
// host token. Failures never reveal whether the code or the password was
// wrong.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	code := strings.TrimSpace(req.TeacherCode)
	if code == "" || req.Password == "" {
		return nil, ErrBadCredentials
	}

	teacher, err := s.teachers.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}

	if err := VerifyPassword(teacher.PasswordHash, req.Password); err != nil {
		return nil, ErrBadCredentials
	}

	token, err := s.tokenMgr.Generate(teacher.ID, teacher.FullName, RoleHost, "")
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.teachers.UpdateLogin(ctx, teacher.ID); err != nil {
		s.logger.Warn().Err(err).Str("teacher_id", teacher.ID).Msg("failed to record login time")
	}

	s.logger.Info().Str("teacher_id", teacher.ID).Msg("teacher logged in")
	return &LoginResponse{
		Token:       token,
		TeacherID:   teacher.ID,
		DisplayName: teacher.FullName,
	}, nil
}

// Register provisions a teacher account. The staff code must be unused;
// the password goes through the usual bcrypt policy.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	code := strings.TrimSpace(req.TeacherCode)
	name := strings.TrimSpace(req.FullName)
	if code == "" || name == "" {
		return nil, ErrBadRegistration
	}

	existing, err := s.teachers.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}
	if existing != nil {
		return nil, ErrTeacherCodeTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	teacher := &repository.Teacher{
		TeacherCode:  code,
		FullName:     name,
		PasswordHash: hash,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, fmt.Errorf("create teacher: %w", err)
	}

	s.logger.Info().Str("teacher_id", teacher.ID).Str("teacher_code", code).Msg("teacher registered")
	return &RegisterResponse{
		TeacherID:   teacher.ID,
		TeacherCode: teacher.TeacherCode,
		FullName:    teacher.FullName,
	}, nil
}

// Profile returns the authenticated teacher's own record.
func (s *Service) Profile(ctx context.Context, teacherID string) (*ProfileResponse, error) {
	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		TeacherID:   teacher.ID,
		TeacherCode: teacher.TeacherCode,
		FullName:    teacher.FullName,
		LastLoginAt: teacher.LastLoginAt,
	}, nil
}

// StudentToken mints a guest token scoped to one room. Students have no
// accounts; the token just binds a display name to a room.
func (s *Service) StudentToken(ctx context.Context, req StudentTokenRequest) (*StudentTokenResponse, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, ErrBadDisplayName
	}
	roomCode := strings.ToUpper(strings.TrimSpace(req.RoomCode))

	subjectID := uuid.NewString()
	token, err := s.tokenMgr.Generate(subjectID, name, RoleStudent, roomCode)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &StudentTokenResponse{
		Token:       token,
		SubjectID:   subjectID,
		DisplayName: name,
		RoomCode:    roomCode,
	}, nil
}

// Validate verifies a token and returns its claims.
func (s *Service) Validate(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.Validate(tokenString)
}
