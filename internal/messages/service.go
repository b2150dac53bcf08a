// Package messages exposes the signed-in user's inbox.
package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type messagesBackend interface {
	UnreadMessageCount(ctx context.Context, token string) (backend.UnreadCount, error)
	MyMessages(ctx context.Context, token string, limit int) ([]backend.Message, error)
	MarkMessageRead(ctx context.Context, token, id string) error
}

type Service interface {
	UnreadCount(ctx context.Context, token string) (int, error)
	List(ctx context.Context, token string, limit int) ([]backend.Message, error)
	MarkRead(ctx context.Context, token, id string) error
}

type service struct {
	backend messagesBackend
}

func NewService(be messagesBackend) (Service, error) {
	if be == nil {
		return nil, fmt.Errorf("messages backend required")
	}
	return &service{backend: be}, nil
}

func (s *service) UnreadCount(ctx context.Context, token string) (int, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	count, err := s.backend.UnreadMessageCount(ctx, token)
	if err != nil {
		return 0, err
	}
	if count.Count < 0 {
		return 0, nil
	}
	return count.Count, nil
}

// List returns the latest messages. limit 0 means DefaultLimit; anything
// outside 1..MaxLimit is rejected.
func (s *service) List(ctx context.Context, token string, limit int) ([]backend.Message, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", MaxLimit)).
			WithDetails(map[string]any{"limit": limit})
	}
	msgs, err := s.backend.MyMessages(ctx, token, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []backend.Message{}
	}
	return msgs, nil
}

func (s *service) MarkRead(ctx context.Context, token, id string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	return s.backend.MarkMessageRead(ctx, token, id)
}

func requireToken(token string) error {
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
