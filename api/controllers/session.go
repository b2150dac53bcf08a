package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

// SessionGet returns the session restored by the Session middleware.
func SessionGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, middleware.SessionFromContext(r.Context()))
	}
}

// SessionLogin signs the visitor in. Credential failures come back as a
// result object with success=false.
func SessionLogin(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var req session.LoginRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Login(r.Context(), visitorID, req))
	}
}

func SessionRegister(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var req session.RegisterRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Register(r.Context(), visitorID, req))
	}
}

func SessionGoogle(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var req session.GoogleLoginRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.LoginWithGoogle(r.Context(), visitorID, req))
	}
}

func SessionLogout(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), visitorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Snapshot{State: session.StateAnonymous})
	}
}

func SessionForgotPassword(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		var req session.ForgotPasswordRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.ForgotPassword(r.Context(), req))
	}
}

func SessionResetPassword(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "session")
			return
		}
		var req session.ResetPasswordRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.ResetPassword(r.Context(), req))
	}
}
