package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/errorlog"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
)

// ErrorReport stores a client-side boundary error under error_logs.
func ErrorReport(svc errorlog.Service, dev bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "error log")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var report errorlog.Report
		if err := validators.DecodeJSONBody(r, &report); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if strings.TrimSpace(report.UserAgent) == "" {
			report.UserAgent = validators.SanitizeString(r.UserAgent(), 512)
		}
		entry, err := svc.Report(r.Context(), visitorID, report)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, errorlog.NewCrashView(entry, dev))
	}
}

func listParam(r *http.Request) string {
	if list := strings.TrimSpace(r.URL.Query().Get("list")); list != "" {
		return list
	}
	return profile.ListErrorLogs
}

// ErrorList returns ?list=error_logs (default) or ?list=app_errors.
func ErrorList(svc errorlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "error log")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		entries, err := svc.List(r.Context(), visitorID, listParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []errorlog.Entry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

func ErrorClear(svc errorlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "error log")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Clear(r.Context(), visitorID, listParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// NetworkErrorView classifies ?status= into the network error screen copy.
// status=0 means the browser could not reach the server.
func NetworkErrorView(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := validators.ParseQueryInt(r, "status", 0, 0, 599)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, errorlog.Classify(status))
	}
}
