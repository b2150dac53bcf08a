// Package errorlog keeps the capped crash and error history a visitor's
// storefront reports, plus gateway panics recorded on their behalf.
package errorlog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/google/uuid"
)

// MaxEntries is how many entries each list keeps.
const MaxEntries = 10

const (
	maxMessageLen = 1000
	maxStackLen   = 8000
)

// Entry is one recorded error.
type Entry struct {
	ID             string    `json:"id"`
	Message        string    `json:"message"`
	Stack          string    `json:"stack,omitempty"`
	ComponentStack string    `json:"componentStack,omitempty"`
	URL            string    `json:"url,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	RequestID      string    `json:"requestId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Report is a client-side boundary error submission.
type Report struct {
	Message        string `json:"message" validate:"required,max=1000"`
	Stack          string `json:"stack,omitempty" validate:"max=8000"`
	ComponentStack string `json:"componentStack,omitempty" validate:"max=8000"`
	URL            string `json:"url,omitempty" validate:"omitempty,max=2048"`
	UserAgent      string `json:"userAgent,omitempty" validate:"max=512"`
}

type Service interface {
	// Report stores a client-side error under error_logs.
	Report(ctx context.Context, visitorID string, report Report) (Entry, error)
	// RecordAppError stores a gateway-side failure under app_errors.
	RecordAppError(ctx context.Context, visitorID string, entry Entry) (Entry, error)
	List(ctx context.Context, visitorID, list string) ([]Entry, error)
	Clear(ctx context.Context, visitorID, list string) error
}

type service struct {
	store profile.Store
	now   func() time.Time
}

func NewService(store profile.Store) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profile store required")
	}
	return &service{store: store, now: time.Now}, nil
}

func (s *service) Report(ctx context.Context, visitorID string, report Report) (Entry, error) {
	entry := Entry{
		Message:        report.Message,
		Stack:          report.Stack,
		ComponentStack: report.ComponentStack,
		URL:            report.URL,
		UserAgent:      report.UserAgent,
	}
	if err := s.append(ctx, visitorID, profile.ListErrorLogs, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *service) RecordAppError(ctx context.Context, visitorID string, entry Entry) (Entry, error) {
	if err := s.append(ctx, visitorID, profile.ListAppErrors, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *service) append(ctx context.Context, visitorID, list string, entry *Entry) error {
	if visitorID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "visitor id required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	entry.Message = truncate(strings.TrimSpace(entry.Message), maxMessageLen)
	entry.Stack = truncate(entry.Stack, maxStackLen)
	entry.ComponentStack = truncate(entry.ComponentStack, maxStackLen)

	payload, err := json.Marshal(entry)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode error entry")
	}
	if err := s.store.Append(ctx, visitorID, list, MaxEntries, string(payload)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record error entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, visitorID, list string) ([]Entry, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	raw, err := s.store.List(ctx, visitorID, list)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list error entries")
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *service) Clear(ctx context.Context, visitorID, list string) error {
	if err := checkList(list); err != nil {
		return err
	}
	if err := s.store.ClearList(ctx, visitorID, list); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear error entries")
	}
	return nil
}

func checkList(list string) error {
	if list != profile.ListErrorLogs && list != profile.ListAppErrors {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown error list")
	}
	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
