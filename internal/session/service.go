// Package session owns the visitor's authentication state: restoring it from
// the profile store, exchanging credentials with the backend and forcing a
// logout when the backend rejects the stored token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/events"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/go-playground/validator/v10"
)

const unreachableMessage = "Unable to reach the server. Please try again later."

// authKeys are dropped on logout. The cart snapshot belongs to the account, not the browser.
var authKeys = []string{profile.KeyToken, profile.KeyUser, profile.KeyRefreshToken, profile.KeyCartSnapshot}

type authBackend interface {
	Login(ctx context.Context, req backend.LoginRequest) (backend.AuthPayload, error)
	Register(ctx context.Context, req backend.RegisterRequest) (backend.AuthPayload, error)
	LoginWithGoogle(ctx context.Context, req backend.GoogleLoginRequest) (backend.AuthPayload, error)
	ForgotPassword(ctx context.Context, req backend.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req backend.ResetPasswordRequest) error
}

type unauthorizedSource interface {
	OnUnauthorized(handler events.UnauthorizedHandler)
}

type logoutRecorder interface {
	IncForcedLogout()
}

// LoginListener runs after a session is persisted, e.g. to merge the guest cart.
type LoginListener interface {
	AfterLogin(ctx context.Context, visitorID string, sess Session) error
}

// Service defines the auth operations exposed to controllers.
type Service interface {
	Restore(ctx context.Context, visitorID string) (Snapshot, error)
	Login(ctx context.Context, visitorID string, req LoginRequest) Result
	Register(ctx context.Context, visitorID string, req RegisterRequest) Result
	LoginWithGoogle(ctx context.Context, visitorID string, req GoogleLoginRequest) Result
	Logout(ctx context.Context, visitorID string) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) Result
	ResetPassword(ctx context.Context, req ResetPasswordRequest) Result
	HandleUnauthorized(ctx context.Context)
}

// ServiceParams bundles the dependencies required to build a session service.
type ServiceParams struct {
	Store     profile.Store
	Locker    *profile.Locker
	Backend   authBackend
	Logger    *logger.Logger
	Recorder  logoutRecorder
	Listeners []LoginListener
	Now       func() time.Time
}

type service struct {
	store     profile.Store
	locker    *profile.Locker
	backend   authBackend
	logg      *logger.Logger
	recorder  logoutRecorder
	listeners []LoginListener
	validate  *validator.Validate
	now       func() time.Time
}

// NewService constructs a session service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("auth backend is required")
	}
	svc := &service{
		store:     params.Store,
		locker:    params.Locker,
		backend:   params.Backend,
		logg:      params.Logger,
		recorder:  params.Recorder,
		listeners: params.Listeners,
		validate:  validator.New(),
		now:       params.Now,
	}
	if svc.locker == nil {
		svc.locker = profile.NewLocker()
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Subscribe registers the forced-logout handler on the unauthorized signal.
func Subscribe(svc Service, source unauthorizedSource) {
	if svc == nil || source == nil {
		return
	}
	source.OnUnauthorized(svc.HandleUnauthorized)
}

// Restore reads the persisted session. A half-present, unreadable or expired
// session is cleared and reported as anonymous.
func (s *service) Restore(ctx context.Context, visitorID string) (Snapshot, error) {
	if visitorID == "" {
		return Snapshot{State: StateAnonymous}, nil
	}

	token, err := s.read(ctx, visitorID, profile.KeyToken)
	if err != nil {
		return Snapshot{}, err
	}
	rawUser, err := s.read(ctx, visitorID, profile.KeyUser)
	if err != nil {
		return Snapshot{}, err
	}
	if token == "" && rawUser == "" {
		return Snapshot{State: StateAnonymous}, nil
	}

	sess, reason := s.decode(token, rawUser)
	if reason != "" {
		s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "discarding stored session")
		if err := s.clear(ctx, visitorID); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{State: StateAnonymous}, nil
	}

	refresh, err := s.read(ctx, visitorID, profile.KeyRefreshToken)
	if err != nil {
		return Snapshot{}, err
	}
	sess.RefreshToken = refresh
	return Snapshot{State: StateAuthenticated, Session: sess}, nil
}

func (s *service) decode(token, rawUser string) (*Session, string) {
	if token == "" || rawUser == "" {
		return nil, "partial session"
	}
	var user backend.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, "malformed user"
	}
	if user.ID == "" {
		return nil, "user without id"
	}
	if tokenExpired(token, s.now()) {
		return nil, "token expired"
	}
	return &Session{Token: token, User: user}, ""
}

func (s *service) Login(ctx context.Context, visitorID string, req LoginRequest) Result {
	req.Email = normalizeEmail(req.Email)
	if res, ok := s.check(req); !ok {
		return res
	}
	payload, err := s.backend.Login(ctx, backend.LoginRequest{Email: req.Email, Password: req.Password})
	return s.establish(ctx, visitorID, payload, err)
}

func (s *service) Register(ctx context.Context, visitorID string, req RegisterRequest) Result {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if res, ok := s.check(req); !ok {
		return res
	}
	payload, err := s.backend.Register(ctx, backend.RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     strings.TrimSpace(req.Phone),
	})
	return s.establish(ctx, visitorID, payload, err)
}

func (s *service) LoginWithGoogle(ctx context.Context, visitorID string, req GoogleLoginRequest) Result {
	if res, ok := s.check(req); !ok {
		return res
	}
	payload, err := s.backend.LoginWithGoogle(ctx, backend.GoogleLoginRequest{Credential: req.Credential})
	return s.establish(ctx, visitorID, payload, err)
}

func (s *service) establish(ctx context.Context, visitorID string, payload backend.AuthPayload, callErr error) Result {
	if callErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", callErr.Error()), "authentication rejected")
		return failure(callErr)
	}
	if visitorID == "" {
		return Result{Success: false, Error: "Your browser session is missing. Please reload the page."}
	}

	userJSON, err := json.Marshal(payload.User)
	if err != nil {
		s.logg.Error(ctx, "encode user", err)
		return failure(err)
	}
	values := map[string]string{
		profile.KeyToken: payload.Token,
		profile.KeyUser:  string(userJSON),
	}

	unlock := s.locker.Lock(visitorID)
	err = s.store.Set(ctx, visitorID, values)
	if err == nil {
		if payload.RefreshToken != "" {
			err = s.store.Set(ctx, visitorID, map[string]string{profile.KeyRefreshToken: payload.RefreshToken})
		} else {
			err = s.store.Delete(ctx, visitorID, profile.KeyRefreshToken)
		}
	}
	unlock()
	if err != nil {
		s.logg.Error(ctx, "persist session", err)
		return failure(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session"))
	}

	sess := Session{Token: payload.Token, RefreshToken: payload.RefreshToken, User: *payload.User}
	ctx = s.logg.WithUserID(ctx, sess.User.ID)
	for _, listener := range s.listeners {
		if err := listener.AfterLogin(ctx, visitorID, sess); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "post-login hook failed")
		}
	}
	s.logg.Info(s.logg.WithActorRole(ctx, sess.User.Role.String()), "session established")
	return Result{Success: true, Session: &sess}
}

// Logout clears every auth key. Logging out twice is a no-op.
func (s *service) Logout(ctx context.Context, visitorID string) error {
	if visitorID == "" {
		return nil
	}
	return s.clear(ctx, visitorID)
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) Result {
	req.Email = normalizeEmail(req.Email)
	if res, ok := s.check(req); !ok {
		return res
	}
	if err := s.backend.ForgotPassword(ctx, backend.ForgotPasswordRequest{Email: req.Email}); err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) Result {
	req.Email = normalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if res, ok := s.check(req); !ok {
		return res
	}
	err := s.backend.ResetPassword(ctx, backend.ResetPasswordRequest{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

// HandleUnauthorized force-logs-out the visitor carried by ctx.
func (s *service) HandleUnauthorized(ctx context.Context) {
	visitorID := profile.VisitorIDFromContext(ctx)
	if visitorID == "" {
		return
	}
	if err := s.clear(ctx, visitorID); err != nil {
		s.logg.Error(ctx, "forced logout failed", err)
		return
	}
	if s.recorder != nil {
		s.recorder.IncForcedLogout()
	}
	s.logg.Info(ctx, "session cleared after unauthorized response")
}

func (s *service) clear(ctx context.Context, visitorID string) error {
	unlock := s.locker.Lock(visitorID)
	defer unlock()
	if err := s.store.Delete(ctx, visitorID, authKeys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	return nil
}

func (s *service) read(ctx context.Context, visitorID, key string) (string, error) {
	raw, err := s.store.Get(ctx, visitorID, key)
	if errors.Is(err, profile.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session")
	}
	return strings.TrimSpace(raw), nil
}

// check validates input before any network call.
func (s *service) check(input any) (Result, bool) {
	err := s.validate.Struct(input)
	if err == nil {
		return Result{}, true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Success: false, Error: "Invalid request."}, false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = fieldMessage(fe)
	}
	return Result{Success: false, Error: fieldMessage(verrs[0]), Fields: fields}, false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Please fill in all required fields."
	case "email":
		return "Please enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters.", jsonName(fe.Field()), fe.Param())
		}
	}
	return fmt.Sprintf("%s is invalid.", jsonName(fe.Field()))
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// failure turns a backend or store error into a result message.
func failure(err error) Result {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeInternal {
		return Result{Success: false, Error: unreachableMessage}
	}
	return Result{Success: false, Error: typed.Message()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
