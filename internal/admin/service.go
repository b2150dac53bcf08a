// Package admin forwards announcement and featured-product management to the
// backend on behalf of staff accounts.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-gateway/internal/routeguard"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	announcementRoles = []enums.Role{enums.RoleModerator}
	featuredRoles     = []enums.Role{}
)

// Caller is the authenticated staff member issuing the request.
type Caller struct {
	Token string
	Role  enums.Role
}

type adminBackend interface {
	ListAnnouncements(ctx context.Context, token string) ([]backend.Announcement, error)
	CreateAnnouncement(ctx context.Context, token string, input backend.AnnouncementInput) (backend.Announcement, error)
	UpdateAnnouncement(ctx context.Context, token, id string, input backend.AnnouncementInput) (backend.Announcement, error)
	DeleteAnnouncement(ctx context.Context, token, id string) error
	ListFeaturedProducts(ctx context.Context, token string) ([]backend.FeaturedProduct, error)
	CreateFeaturedProduct(ctx context.Context, token string, input backend.FeaturedProductInput) (backend.FeaturedProduct, error)
	UpdateFeaturedProduct(ctx context.Context, token, id string, input backend.FeaturedProductInput) (backend.FeaturedProduct, error)
	DeleteFeaturedProduct(ctx context.Context, token, id string) error
}

type Service interface {
	ListAnnouncements(ctx context.Context, caller Caller) ([]backend.Announcement, error)
	CreateAnnouncement(ctx context.Context, caller Caller, input backend.AnnouncementInput) (backend.Announcement, error)
	UpdateAnnouncement(ctx context.Context, caller Caller, id string, input backend.AnnouncementInput) (backend.Announcement, error)
	DeleteAnnouncement(ctx context.Context, caller Caller, id string) error
	ListFeatured(ctx context.Context, caller Caller) ([]backend.FeaturedProduct, error)
	CreateFeatured(ctx context.Context, caller Caller, input backend.FeaturedProductInput) (backend.FeaturedProduct, error)
	UpdateFeatured(ctx context.Context, caller Caller, id string, input backend.FeaturedProductInput) (backend.FeaturedProduct, error)
	DeleteFeatured(ctx context.Context, caller Caller, id string) error
}

type service struct {
	backend adminBackend
}

func NewService(be adminBackend) (Service, error) {
	if be == nil {
		return nil, fmt.Errorf("admin backend required")
	}
	return &service{backend: be}, nil
}

func (s *service) ListAnnouncements(ctx context.Context, caller Caller) ([]backend.Announcement, error) {
	if err := authorize(caller, announcementRoles); err != nil {
		return nil, err
	}
	return s.backend.ListAnnouncements(ctx, caller.Token)
}

func (s *service) CreateAnnouncement(ctx context.Context, caller Caller, input backend.AnnouncementInput) (backend.Announcement, error) {
	if err := authorize(caller, announcementRoles); err != nil {
		return backend.Announcement{}, err
	}
	input, err := checkAnnouncement(input)
	if err != nil {
		return backend.Announcement{}, err
	}
	return s.backend.CreateAnnouncement(ctx, caller.Token, input)
}

func (s *service) UpdateAnnouncement(ctx context.Context, caller Caller, id string, input backend.AnnouncementInput) (backend.Announcement, error) {
	if err := authorize(caller, announcementRoles); err != nil {
		return backend.Announcement{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return backend.Announcement{}, err
	}
	input, err = checkAnnouncement(input)
	if err != nil {
		return backend.Announcement{}, err
	}
	return s.backend.UpdateAnnouncement(ctx, caller.Token, id, input)
}

func (s *service) DeleteAnnouncement(ctx context.Context, caller Caller, id string) error {
	if err := authorize(caller, announcementRoles); err != nil {
		return err
	}
	id, err := requireID(id)
	if err != nil {
		return err
	}
	return s.backend.DeleteAnnouncement(ctx, caller.Token, id)
}

func (s *service) ListFeatured(ctx context.Context, caller Caller) ([]backend.FeaturedProduct, error) {
	if err := authorize(caller, featuredRoles); err != nil {
		return nil, err
	}
	return s.backend.ListFeaturedProducts(ctx, caller.Token)
}

func (s *service) CreateFeatured(ctx context.Context, caller Caller, input backend.FeaturedProductInput) (backend.FeaturedProduct, error) {
	if err := authorize(caller, featuredRoles); err != nil {
		return backend.FeaturedProduct{}, err
	}
	input.ProductID = strings.TrimSpace(input.ProductID)
	if err := validateInput(input); err != nil {
		return backend.FeaturedProduct{}, err
	}
	return s.backend.CreateFeaturedProduct(ctx, caller.Token, input)
}

func (s *service) UpdateFeatured(ctx context.Context, caller Caller, id string, input backend.FeaturedProductInput) (backend.FeaturedProduct, error) {
	if err := authorize(caller, featuredRoles); err != nil {
		return backend.FeaturedProduct{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return backend.FeaturedProduct{}, err
	}
	input.ProductID = strings.TrimSpace(input.ProductID)
	if err := validateInput(input); err != nil {
		return backend.FeaturedProduct{}, err
	}
	return s.backend.UpdateFeaturedProduct(ctx, caller.Token, id, input)
}

func (s *service) DeleteFeatured(ctx context.Context, caller Caller, id string) error {
	if err := authorize(caller, featuredRoles); err != nil {
		return err
	}
	id, err := requireID(id)
	if err != nil {
		return err
	}
	return s.backend.DeleteFeaturedProduct(ctx, caller.Token, id)
}

func authorize(caller Caller, allowed []enums.Role) error {
	if caller.Token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !routeguard.RoleAllowed(caller.Role, allowed) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
			WithDetails(map[string]any{"role": caller.Role})
	}
	return nil
}

func checkAnnouncement(input backend.AnnouncementInput) (backend.AnnouncementInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if input.Type == "" {
		input.Type = "info"
	}
	if err := validateInput(input); err != nil {
		return input, err
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "endDate must not precede startDate").
			WithDetails(map[string]any{"fields": []string{"endDate"}})
	}
	return input, nil
}

func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid input").
		WithDetails(map[string]any{"fields": fields})
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "id is required")
	}
	return id, nil
}
