// Package catalog serves products, categories, announcements and featured
// products, decorated with the visitor's display currency.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DefaultRotationInterval is how long each announcement stays on screen.
const DefaultRotationInterval = 5 * time.Second

var validSorts = map[string]struct{}{
	"":           {},
	"newest":     {},
	"price_asc":  {},
	"price_desc": {},
	"popular":    {},
	"rating":     {},
}

type catalogBackend interface {
	ListProducts(ctx context.Context, filter backend.ProductFilter) (backend.ProductList, error)
	GetProduct(ctx context.Context, id string) (backend.Product, error)
	ListCategories(ctx context.Context) ([]backend.Category, error)
	ActiveAnnouncements(ctx context.Context) ([]backend.Announcement, error)
	FeaturedProducts(ctx context.Context) ([]backend.FeaturedProduct, error)
}

// ProductView is a product with prices rendered in the visitor currency.
type ProductView struct {
	backend.Product
	DisplayPrice         string `json:"displayPrice"`
	DisplayOriginalPrice string `json:"displayOriginalPrice,omitempty"`
	DiscountPercent      int    `json:"discountPercent,omitempty"`
	InStock              bool   `json:"inStock"`
}

type ProductPage struct {
	Products   []ProductView      `json:"products"`
	Pagination backend.Pagination `json:"pagination"`
}

type FeaturedView struct {
	ID       string       `json:"id"`
	Position int          `json:"position"`
	Product  *ProductView `json:"product,omitempty"`
}

// AnnouncementFeed is the active banner list with the slot to show now.
type AnnouncementFeed struct {
	Items        []backend.Announcement `json:"items"`
	CurrentIndex int                    `json:"currentIndex"`
	RotateEvery  string                 `json:"rotateEvery"`
}

type Service interface {
	ListProducts(ctx context.Context, filter backend.ProductFilter, sel currency.Selection) (ProductPage, error)
	GetProduct(ctx context.Context, id string, sel currency.Selection) (ProductView, error)
	Categories(ctx context.Context) ([]backend.Category, error)
	Announcements(ctx context.Context, now time.Time) (AnnouncementFeed, error)
	Featured(ctx context.Context, sel currency.Selection) ([]FeaturedView, error)
}

type service struct {
	backend  catalogBackend
	interval time.Duration
}

// NewService builds the catalog service. interval ≤ 0 uses DefaultRotationInterval.
func NewService(be catalogBackend, interval time.Duration) (Service, error) {
	if be == nil {
		return nil, fmt.Errorf("catalog backend required")
	}
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	return &service{backend: be, interval: interval}, nil
}

func (s *service) ListProducts(ctx context.Context, filter backend.ProductFilter, sel currency.Selection) (ProductPage, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return ProductPage{}, err
	}
	list, err := s.backend.ListProducts(ctx, filter)
	if err != nil {
		return ProductPage{}, err
	}
	views := make([]ProductView, 0, len(list.Products))
	for _, p := range list.Products {
		views = append(views, Decorate(p, sel))
	}
	return ProductPage{Products: views, Pagination: list.Pagination}, nil
}

func (s *service) GetProduct(ctx context.Context, id string, sel currency.Selection) (ProductView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ProductView{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.backend.GetProduct(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	return Decorate(product, sel), nil
}

func (s *service) Categories(ctx context.Context) ([]backend.Category, error) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []backend.Category{}
	}
	return categories, nil
}

// Announcements returns the currently scheduled announcements, highest
// priority first, and the index the rotation points at for now.
func (s *service) Announcements(ctx context.Context, now time.Time) (AnnouncementFeed, error) {
	items, err := s.backend.ActiveAnnouncements(ctx)
	if err != nil {
		return AnnouncementFeed{}, err
	}
	live := make([]backend.Announcement, 0, len(items))
	for _, a := range items {
		if scheduled(a, now) {
			live = append(live, a)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Priority > live[j].Priority })
	return AnnouncementFeed{
		Items:        live,
		CurrentIndex: Rotation(len(live), now, s.interval),
		RotateEvery:  s.interval.String(),
	}, nil
}

func (s *service) Featured(ctx context.Context, sel currency.Selection) ([]FeaturedView, error) {
	items, err := s.backend.FeaturedProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	out := make([]FeaturedView, 0, len(items))
	for _, item := range items {
		view := FeaturedView{ID: item.ID, Position: item.Position}
		if item.Product.Product != nil {
			decorated := Decorate(*item.Product.Product, sel)
			view.Product = &decorated
		}
		out = append(out, view)
	}
	return out, nil
}

// Rotation returns the deterministic slot for now: every visitor sees the
// same announcement during the same interval. It is 0 when there is at most
// one item.
func Rotation(items int, now time.Time, interval time.Duration) int {
	if items <= 1 || interval <= 0 {
		return 0
	}
	slot := now.UnixNano() / int64(interval)
	if slot < 0 {
		slot = -slot
	}
	return int(slot % int64(items))
}

// Decorate renders the product's prices in the selected currency.
func Decorate(p backend.Product, sel currency.Selection) ProductView {
	view := ProductView{
		Product:      p,
		DisplayPrice: sel.Format(p.Price),
		InStock:      p.Stock > 0,
	}
	if p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price) && p.OriginalPrice.IsPositive() {
		view.DisplayOriginalPrice = sel.Format(*p.OriginalPrice)
		view.DiscountPercent = int(p.OriginalPrice.Sub(p.Price).Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	return view
}

func scheduled(a backend.Announcement, now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate != nil && now.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && now.After(*a.EndDate) {
		return false
	}
	return true
}

func normalizeFilter(f backend.ProductFilter) (backend.ProductFilter, error) {
	f.Sort = strings.ToLower(strings.TrimSpace(f.Sort))
	if _, ok := validSorts[f.Sort]; !ok {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort").
			WithDetails(map[string]any{"sort": f.Sort})
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must not exceed maxPrice")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f, nil
}
