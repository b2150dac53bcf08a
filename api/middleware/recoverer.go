package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/errorlog"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type appErrorRecorder interface {
	RecordAppError(ctx context.Context, visitorID string, entry errorlog.Entry) (errorlog.Entry, error)
}

type crashPayload struct {
	Error responses.ErrorBody `json:"error"`
	Crash errorlog.CrashView  `json:"crash"`
}

// Recoverer turns a panic into a 500 crash payload and records it in the
// visitor's app_errors history.
func Recoverer(logg *logger.Logger, recorder appErrorRecorder, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
					logg.Error(ctx, "panic.recovered", err)
				}

				entry := errorlog.Entry{
					Message:   err.Error(),
					Stack:     string(debug.Stack()),
					URL:       r.URL.String(),
					UserAgent: r.UserAgent(),
					RequestID: RequestIDFromContext(ctx),
					Timestamp: time.Now().UTC(),
				}
				visitorID := VisitorIDFromContext(ctx)
				if recorder == nil || visitorID == "" {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
					return
				}
				if recorded, recErr := recorder.RecordAppError(context.WithoutCancel(ctx), visitorID, entry); recErr != nil {
					if logg != nil {
						logg.Error(ctx, "panic.record_failed", recErr)
					}
				} else {
					entry = recorded
				}

				meta := pkgerrors.MetadataFor(pkgerrors.CodeInternal)
				responses.WriteRaw(w, meta.HTTPStatus, crashPayload{
					Error: responses.ErrorBody{Code: string(pkgerrors.CodeInternal), Message: meta.PublicMessage},
					Crash: errorlog.NewCrashView(entry, dev),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
