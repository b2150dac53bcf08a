// Package notifications keeps the transient, user-visible notices raised by
// storefront operations until the UI drains them.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/google/uuid"
)

// MaxPending caps how many undrained notices a visitor keeps.
const MaxPending = 20

// Notice is one toast-style message.
type Notice struct {
	ID        string            `json:"id"`
	Level     enums.NoticeLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Recorder is the write side used by domain services.
type Recorder interface {
	Record(ctx context.Context, visitorID string, level enums.NoticeLevel, message string) error
}

// Service records, lists and drains notices.
type Service interface {
	Recorder
	List(ctx context.Context, visitorID string) ([]Notice, error)
	Drain(ctx context.Context, visitorID string) ([]Notice, error)
}

type service struct {
	store profile.Store
	now   func() time.Time
}

// NewService wires notification dependencies.
func NewService(store profile.Store) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profile store required")
	}
	return &service{store: store, now: time.Now}, nil
}

func (s *service) Record(ctx context.Context, visitorID string, level enums.NoticeLevel, message string) error {
	if visitorID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "visitor id required")
	}
	payload, err := json.Marshal(Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notice")
	}
	if err := s.store.Append(ctx, visitorID, profile.ListNotifications, MaxPending, string(payload)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record notice")
	}
	return nil
}

func (s *service) List(ctx context.Context, visitorID string) ([]Notice, error) {
	if visitorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "visitor id required")
	}
	raw, err := s.store.List(ctx, visitorID, profile.ListNotifications)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notices")
	}
	return decodeNotices(raw), nil
}

// Drain returns pending notices and clears them. The store pops the list in
// one step so a notice recorded by a concurrent request is either returned
// here or left for the next drain.
func (s *service) Drain(ctx context.Context, visitorID string) ([]Notice, error) {
	if visitorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "visitor id required")
	}
	raw, err := s.store.PopList(ctx, visitorID, profile.ListNotifications)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drain notices")
	}
	return decodeNotices(raw), nil
}

// decodeNotices skips entries that no longer decode.
func decodeNotices(raw []string) []Notice {
	out := make([]Notice, 0, len(raw))
	for _, entry := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
