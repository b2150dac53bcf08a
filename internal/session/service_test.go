package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/events"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type stubBackend struct {
	loginCalls int
	payload    backend.AuthPayload
	err        error
	lastLogin  backend.LoginRequest
	resetErr   error
}

func (s *stubBackend) Login(_ context.Context, req backend.LoginRequest) (backend.AuthPayload, error) {
	s.loginCalls++
	s.lastLogin = req
	return s.payload, s.err
}

func (s *stubBackend) Register(context.Context, backend.RegisterRequest) (backend.AuthPayload, error) {
	return s.payload, s.err
}

func (s *stubBackend) LoginWithGoogle(context.Context, backend.GoogleLoginRequest) (backend.AuthPayload, error) {
	return s.payload, s.err
}

func (s *stubBackend) ForgotPassword(context.Context, backend.ForgotPasswordRequest) error {
	return s.err
}

func (s *stubBackend) ResetPassword(context.Context, backend.ResetPasswordRequest) error {
	return s.resetErr
}

type listenerFunc func(ctx context.Context, visitorID string, sess Session) error

func (f listenerFunc) AfterLogin(ctx context.Context, visitorID string, sess Session) error {
	return f(ctx, visitorID, sess)
}

type logoutCounter struct{ n int }

func (l *logoutCounter) IncForcedLogout() { l.n++ }

func newTestService(t *testing.T, be *stubBackend, listeners ...LoginListener) (Service, *profile.MemoryStore) {
	t.Helper()
	store := profile.NewMemoryStore()
	svc, err := NewService(ServiceParams{
		Store:     store,
		Backend:   be,
		Listeners: listeners,
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validPayload() backend.AuthPayload {
	return backend.AuthPayload{
		Token:        "opaque-token",
		RefreshToken: "refresh",
		User:         &backend.User{ID: "u1", Email: "amel@example.com", Role: enums.RoleVendor, FirstName: "Amel"},
	}
}

func TestLoginPersistsSession(t *testing.T) {
	be := &stubBackend{payload: validPayload()}
	var hooked string
	svc, store := newTestService(t, be, listenerFunc(func(_ context.Context, visitorID string, sess Session) error {
		hooked = visitorID + ":" + sess.User.ID
		return errors.New("merge failed")
	}))
	ctx := context.Background()

	res := svc.Login(ctx, "v1", LoginRequest{Email: " Amel@Example.com ", Password: "secret"})
	if !res.Success || res.Session == nil {
		t.Fatalf("expected success, got %+v", res)
	}
	if be.lastLogin.Email != "amel@example.com" {
		t.Fatalf("email should be normalized, got %q", be.lastLogin.Email)
	}
	if hooked != "v1:u1" {
		t.Fatalf("login listener not invoked, got %q", hooked)
	}

	token, _ := store.Get(ctx, "v1", profile.KeyToken)
	refresh, _ := store.Get(ctx, "v1", profile.KeyRefreshToken)
	if token != "opaque-token" || refresh != "refresh" {
		t.Fatalf("unexpected stored tokens %q %q", token, refresh)
	}

	snap, err := svc.Restore(ctx, "v1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !snap.Authenticated() || snap.Session.User.Role != enums.RoleVendor {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	be := &stubBackend{payload: validPayload()}
	svc, _ := newTestService(t, be)

	res := svc.Login(context.Background(), "v1", LoginRequest{Email: "not-an-email", Password: "x"})
	if res.Success || res.Error == "" {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if res.Fields["email"] == "" {
		t.Fatalf("expected email field error, got %v", res.Fields)
	}
	if be.loginCalls != 0 {
		t.Fatalf("backend must not be called on invalid input")
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{payload: validPayload()})
	res := svc.Register(context.Background(), "v1", RegisterRequest{
		FirstName: "A", LastName: "B", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2",
	})
	if res.Success || res.Error != "Passwords do not match." {
		t.Fatalf("expected mismatch error, got %+v", res)
	}
}

func TestLoginBackendFailureIsResult(t *testing.T) {
	be := &stubBackend{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")}
	svc, store := newTestService(t, be)

	res := svc.Login(context.Background(), "v1", LoginRequest{Email: "a@b.co", Password: "bad"})
	if res.Success || res.Error != "Invalid credentials" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := store.Get(context.Background(), "v1", profile.KeyToken); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("failed login must not persist a token")
	}

	be.err = pkgerrors.New(pkgerrors.CodeDependency, "auth_login request failed")
	res = svc.Login(context.Background(), "v1", LoginRequest{Email: "a@b.co", Password: "bad"})
	if res.Error != unreachableMessage {
		t.Fatalf("dependency failures should use generic copy, got %q", res.Error)
	}
}

func TestRestoreClearsHalfSession(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{})
	ctx := context.Background()
	_ = store.Set(ctx, "v1", map[string]string{profile.KeyToken: "orphan"})

	snap, err := svc.Restore(ctx, "v1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if snap.State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", snap.State)
	}
	if _, err := store.Get(ctx, "v1", profile.KeyToken); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("orphan token should be cleared")
	}
}

func TestRestoreClearsMalformedUser(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{})
	ctx := context.Background()
	_ = store.Set(ctx, "v1", map[string]string{profile.KeyToken: "t", profile.KeyUser: "{broken"})

	snap, _ := svc.Restore(ctx, "v1")
	if snap.State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", snap.State)
	}
	if _, err := store.Get(ctx, "v1", profile.KeyUser); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("malformed user should be cleared")
	}
}

func TestRestoreExpiredJWT(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{})
	ctx := context.Background()
	user, _ := json.Marshal(backend.User{ID: "u1", Email: "a@b.co", Role: enums.RoleCustomer})

	_ = store.Set(ctx, "v1", map[string]string{profile.KeyToken: signedToken(t, testNow.Add(-time.Minute)), profile.KeyUser: string(user)})
	if snap, _ := svc.Restore(ctx, "v1"); snap.State != StateAnonymous {
		t.Fatalf("expired token should restore anonymous, got %s", snap.State)
	}

	_ = store.Set(ctx, "v2", map[string]string{profile.KeyToken: signedToken(t, testNow.Add(time.Hour)), profile.KeyUser: string(user)})
	if snap, _ := svc.Restore(ctx, "v2"); snap.State != StateAuthenticated {
		t.Fatalf("live token should restore authenticated, got %s", snap.State)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{payload: validPayload()})
	ctx := context.Background()
	svc.Login(ctx, "v1", LoginRequest{Email: "a@b.co", Password: "x"})

	for i := 0; i < 2; i++ {
		if err := svc.Logout(ctx, "v1"); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	for _, key := range authKeys {
		if _, err := store.Get(ctx, "v1", key); !errors.Is(err, profile.ErrNotFound) {
			t.Fatalf("key %s should be cleared", key)
		}
	}
}

func TestLogoutDropsCachedCart(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{payload: validPayload()})
	ctx := context.Background()
	svc.Login(ctx, "v1", LoginRequest{Email: "a@b.co", Password: "x"})
	if err := store.Set(ctx, "v1", map[string]string{profile.KeyCartSnapshot: `{"userId":"u1"}`, profile.KeyTheme: "dark"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Logout(ctx, "v1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := store.Get(ctx, "v1", profile.KeyCartSnapshot); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("cart snapshot should be cleared on logout")
	}
	if theme, _ := store.Get(ctx, "v1", profile.KeyTheme); theme != "dark" {
		t.Fatalf("visitor preferences should survive logout, got %q", theme)
	}
}

func TestUnauthorizedSignalForcesLogout(t *testing.T) {
	store := profile.NewMemoryStore()
	counter := &logoutCounter{}
	svc, err := NewService(ServiceParams{Store: store, Backend: &stubBackend{payload: validPayload()}, Recorder: counter})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	bus := events.NewBus()
	Subscribe(svc, bus)

	ctx := context.Background()
	svc.Login(ctx, "v1", LoginRequest{Email: "a@b.co", Password: "x"})
	svc.Login(ctx, "v2", LoginRequest{Email: "a@b.co", Password: "x"})

	bus.RaiseUnauthorized(profile.WithVisitorID(ctx, "v1"))

	if snap, _ := svc.Restore(ctx, "v1"); snap.State != StateAnonymous {
		t.Fatalf("v1 should be logged out")
	}
	if snap, _ := svc.Restore(ctx, "v2"); snap.State != StateAuthenticated {
		t.Fatalf("v2 must be untouched")
	}
	if counter.n != 1 {
		t.Fatalf("expected one forced logout, got %d", counter.n)
	}

	bus.RaiseUnauthorized(ctx)
	if counter.n != 1 {
		t.Fatalf("signal without visitor must be ignored")
	}
}

func TestResetPasswordResult(t *testing.T) {
	be := &stubBackend{resetErr: pkgerrors.New(pkgerrors.CodeValidation, "Invalid or expired code")}
	svc, _ := newTestService(t, be)
	res := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@b.co", Code: "123456", NewPassword: "secret1", ConfirmPassword: "secret1",
	})
	if res.Success || res.Error != "Invalid or expired code" {
		t.Fatalf("unexpected result %+v", res)
	}
	be.resetErr = nil
	if res := svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@b.co", Code: "123456", NewPassword: "secret1", ConfirmPassword: "secret1",
	}); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestTokenExpiredOpaque(t *testing.T) {
	if tokenExpired("not-a-jwt", testNow) {
		t.Fatal("opaque tokens never expire locally")
	}
}
