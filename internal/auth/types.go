package auth

import "time"

// Principal roles.
const (
	RoleHost    = "host"
	RoleStudent = "student"
)

// LoginRequest is a teacher login with staff code and password.
type LoginRequest struct {
	TeacherCode string `json:"teacher_code"`
	Password    string `json:"password"`
}

// LoginResponse carries the host token.
type LoginResponse struct {
	Token       string `json:"token"`
	TeacherID   string `json:"teacher_id"`
	DisplayName string `json:"display_name"`
}

// RegisterRequest provisions a teacher account.
type RegisterRequest struct {
	TeacherCode string `json:"teacher_code"`
	FullName    string `json:"full_name"`
	Password    string `json:"password"`
}

// RegisterResponse identifies the new account.
type RegisterResponse struct {
	TeacherID   string `json:"teacher_id"`
	TeacherCode string `json:"teacher_code"`
	FullName    string `json:"full_name"`
}

// ProfileResponse is a teacher's own account record.
type ProfileResponse struct {
	TeacherID   string     `json:"teacher_id"`
	TeacherCode string     `json:"teacher_code"`
	FullName    string     `json:"full_name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// StudentTokenRequest mints a guest token for a room.
type StudentTokenRequest struct {
	DisplayName string `json:"display_name"`
	RoomCode    string `json:"room_code"`
}

// StudentTokenResponse carries the guest token.
type StudentTokenResponse struct {
	Token       string `json:"token"`
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	RoomCode    string `json:"room_code"`
}
