package delivery

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

type stubBackend struct {
	confirmed string
}

func (s *stubBackend) GetDelivery(_ context.Context, _, code string) (backend.Delivery, error) {
	return backend.Delivery{DeliveryCode: code, Status: "shipped"}, nil
}

func (s *stubBackend) ConfirmDelivery(_ context.Context, _, code string) (backend.Delivery, error) {
	s.confirmed = code
	return backend.Delivery{DeliveryCode: code, Status: "delivered"}, nil
}

func TestCourierConfirmsDelivery(t *testing.T) {
	be := &stubBackend{}
	svc, _ := NewService(be)

	got, err := svc.Confirm(context.Background(), "tok", enums.RoleLivreur, " dl-1234 ")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if be.confirmed != "DL-1234" || got.Status != "delivered" {
		t.Fatalf("unexpected confirm result %+v (sent %q)", got, be.confirmed)
	}
}

func TestRoleGate(t *testing.T) {
	svc, _ := NewService(&stubBackend{})
	if _, err := svc.Get(context.Background(), "tok", enums.RoleCustomer, "DL-1234"); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("customer should be forbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "tok", enums.RoleAdmin, "DL-1234"); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
	if _, err := svc.Get(context.Background(), "", enums.RoleLivreur, "DL-1234"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("missing token should be unauthorized, got %v", err)
	}
}

func TestInvalidCode(t *testing.T) {
	svc, _ := NewService(&stubBackend{})
	for _, code := range []string{"", "ab", "DL/../1"} {
		if _, err := svc.Get(context.Background(), "tok", enums.RoleLivreur, code); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("code %q: expected validation error, got %v", code, err)
		}
	}
}
