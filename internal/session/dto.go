package session

import (
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
)

// State is the session lifecycle as seen by the storefront.
type State string

const (
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Session is a restored or freshly issued login. Token and User are always both set.
type Session struct {
	Token        string       `json:"-"`
	RefreshToken string       `json:"-"`
	User         backend.User `json:"user"`
}

// Result is the outcome of every auth operation. Failures carry a
// human-readable Error instead of a Go error.
type Result struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Session *Session          `json:"session,omitempty"`
}

// Snapshot is the current session view returned to the UI.
type Snapshot struct {
	State   State    `json:"state"`
	Session *Session `json:"session,omitempty"`
}

// Authenticated reports whether the snapshot carries a session.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Session != nil
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	FirstName       string `json:"firstName" validate:"required,max=60"`
	LastName        string `json:"lastName" validate:"required,max=60"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}
