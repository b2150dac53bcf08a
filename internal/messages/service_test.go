package messages

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

type stubBackend struct {
	limit  int
	marked string
}

func (s *stubBackend) UnreadMessageCount(context.Context, string) (backend.UnreadCount, error) {
	return backend.UnreadCount{Count: 3}, nil
}

func (s *stubBackend) MyMessages(_ context.Context, _ string, limit int) ([]backend.Message, error) {
	s.limit = limit
	return nil, nil
}

func (s *stubBackend) MarkMessageRead(_ context.Context, _, id string) error {
	s.marked = id
	return nil
}

func TestListLimitBounds(t *testing.T) {
	be := &stubBackend{}
	svc, _ := NewService(be)

	msgs, err := svc.List(context.Background(), "tok", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if be.limit != DefaultLimit || msgs == nil {
		t.Fatalf("expected default limit and empty slice, got %d %v", be.limit, msgs)
	}
	for _, limit := range []int{-1, 51} {
		if _, err := svc.List(context.Background(), "tok", limit); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("limit %d: expected validation error, got %v", limit, err)
		}
	}
	if _, err := svc.List(context.Background(), "tok", 50); err != nil {
		t.Fatalf("limit 50 should pass: %v", err)
	}
}

func TestRequiresToken(t *testing.T) {
	svc, _ := NewService(&stubBackend{})
	if _, err := svc.UnreadCount(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	be := &stubBackend{}
	svc, _ := NewService(be)
	if err := svc.MarkRead(context.Background(), "tok", " m1 "); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if be.marked != "m1" {
		t.Fatalf("expected trimmed id, got %q", be.marked)
	}
	count, _ := svc.UnreadCount(context.Background(), "tok")
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}
}
