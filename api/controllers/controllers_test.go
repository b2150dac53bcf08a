package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/internal/admin"
	"github.com/angelmondragon/storefront-gateway/internal/catalog"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/vendor"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type stubCatalog struct {
	filter    backend.ProductFilter
	productID string
	calls     int
}

func (s *stubCatalog) ListProducts(ctx context.Context, filter backend.ProductFilter, sel currency.Selection) (catalog.ProductPage, error) {
	s.calls++
	s.filter = filter
	return catalog.ProductPage{}, nil
}

func (s *stubCatalog) GetProduct(ctx context.Context, id string, sel currency.Selection) (catalog.ProductView, error) {
	s.calls++
	s.productID = id
	return catalog.ProductView{}, nil
}

func (s *stubCatalog) Categories(ctx context.Context) ([]backend.Category, error) {
	return nil, nil
}

func (s *stubCatalog) Announcements(ctx context.Context, now time.Time) (catalog.AnnouncementFeed, error) {
	return catalog.AnnouncementFeed{}, nil
}

func (s *stubCatalog) Featured(ctx context.Context, sel currency.Selection) ([]catalog.FeaturedView, error) {
	return nil, nil
}

type stubMessages struct {
	limit int
	token string
}

func (s *stubMessages) UnreadCount(ctx context.Context, token string) (int, error) {
	return 3, nil
}

func (s *stubMessages) List(ctx context.Context, token string, limit int) ([]backend.Message, error) {
	s.token = token
	s.limit = limit
	return nil, nil
}

func (s *stubMessages) MarkRead(ctx context.Context, token, id string) error {
	return nil
}

type stubVendor struct {
	app     vendor.Application
	fields  []string
	content map[string]string
	role    enums.Role
}

func (s *stubVendor) Submit(ctx context.Context, token string, role enums.Role, app vendor.Application, uploads []vendor.Upload) (backend.VendorRequestStatus, error) {
	s.app = app
	s.role = role
	s.content = map[string]string{}
	for _, up := range uploads {
		data, err := io.ReadAll(up.Reader)
		if err != nil {
			return backend.VendorRequestStatus{}, err
		}
		s.fields = append(s.fields, up.Field)
		s.content[up.Field] = string(data)
	}
	return backend.VendorRequestStatus{Status: "pending"}, nil
}

type stubAdmin struct {
	admin.Service
	deleted string
	caller  admin.Caller
}

func (s *stubAdmin) DeleteFeatured(ctx context.Context, caller admin.Caller, id string) error {
	s.caller = caller
	s.deleted = id
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func signedIn(r *http.Request, role enums.Role) *http.Request {
	snap := session.Snapshot{
		State: session.StateAuthenticated,
		Session: &session.Session{
			Token: "tok-1",
			User:  backend.User{ID: "user-1", Role: role},
		},
	}
	return r.WithContext(middleware.WithSession(r.Context(), snap))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestProductListParsesFilter(t *testing.T) {
	svc := &stubCatalog{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?search=%20rose%20&category=flowers&minPrice=10&maxPrice=99.5&sort=price_asc&page=2&limit=5", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, nil, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f := svc.filter
	if f.Search != "rose" || f.Category != "flowers" || f.Sort != "price_asc" {
		t.Fatalf("unexpected text filters: %+v", f)
	}
	if f.MinPrice == nil || f.MinPrice.String() != "10" || f.MaxPrice == nil || f.MaxPrice.String() != "99.5" {
		t.Fatalf("unexpected price filters: %v %v", f.MinPrice, f.MaxPrice)
	}
	if f.Page != 2 || f.Limit != 5 {
		t.Fatalf("unexpected paging: page=%d limit=%d", f.Page, f.Limit)
	}
}

func TestProductListRejectsOversizedLimit(t *testing.T) {
	svc := &stubCatalog{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=500", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, nil, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestProductDetailReadsRouteParam(t *testing.T) {
	svc := &stubCatalog{}
	r := chi.NewRouter()
	r.Get("/api/v1/products/{productId}", ProductDetail(svc, nil, logger.Nop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/p-42", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.productID != "p-42" {
		t.Fatalf("expected p-42, got %q", svc.productID)
	}
}

func TestMessagesListDefaultsLimit(t *testing.T) {
	svc := &stubMessages{}
	req := signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/messages/my", nil), enums.RoleCustomer)
	rec := httptest.NewRecorder()

	MessagesList(svc, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.limit != 10 || svc.token != "tok-1" {
		t.Fatalf("unexpected call: limit=%d token=%q", svc.limit, svc.token)
	}
}

func TestMessagesUnreadCount(t *testing.T) {
	req := signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/messages/unread-count", nil), enums.RoleCustomer)
	rec := httptest.NewRecorder()

	MessagesUnreadCount(&stubMessages{}, logger.Nop()).ServeHTTP(rec, req)

	var body struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Count != 3 {
		t.Fatalf("expected 3, got %d", body.Data.Count)
	}
}

func TestVendorRequestCollectsFormAndFiles(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("businessName", "Rose Atelier")
	_ = mw.WriteField("phone", "+21612345678")
	_ = mw.WriteField("address", "12 Rue de Marseille, Tunis")
	part, err := mw.CreateFormFile(vendor.FieldBusinessLicense, "license.pdf")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 license"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor-request", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = signedIn(req, enums.RoleCustomer)
	rec := httptest.NewRecorder()

	svc := &stubVendor{}
	VendorRequest(svc, 1<<20, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.app.BusinessName != "Rose Atelier" || svc.app.Phone != "+21612345678" {
		t.Fatalf("unexpected application: %+v", svc.app)
	}
	if svc.role != enums.RoleCustomer {
		t.Fatalf("expected customer role, got %q", svc.role)
	}
	if got := svc.content[vendor.FieldBusinessLicense]; got != "%PDF-1.4 license" {
		t.Fatalf("unexpected upload content %q", got)
	}
}

func TestVendorRequestRejectsOversizedBody(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile(vendor.FieldBusinessLicense, "license.pdf")
	_, _ = part.Write(bytes.Repeat([]byte("a"), 3<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor-request", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	// five documents of 100 bytes plus form overhead is well under 3MiB
	VendorRequest(&stubVendor{}, 100, logger.Nop()).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestAdminFeaturedDeleteNoContent(t *testing.T) {
	svc := &stubAdmin{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, signedIn(req, enums.RoleAdmin))
		})
	})
	r.Delete("/api/v1/admin/featured-products/{featuredId}", AdminFeaturedDelete(svc, logger.Nop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/featured-products/f-1", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if svc.deleted != "f-1" || svc.caller.Role != enums.RoleAdmin || svc.caller.Token != "tok-1" {
		t.Fatalf("unexpected call: id=%q caller=%+v", svc.deleted, svc.caller)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"

	cases := []struct {
		name   string
		pinger Pinger
		status int
	}{
		{name: "no redis configured", pinger: nil, status: http.StatusOK},
		{name: "redis up", pinger: stubPinger{}, status: http.StatusOK},
		{name: "redis down", pinger: stubPinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReady(cfg, tc.pinger, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if rec.Header().Get("X-Storefront-Env") != "test" {
				t.Fatalf("missing env header")
			}
		})
	}
}

func TestNetworkErrorViewRejectsInvalidStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	NetworkErrorView(logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/network-error?status=700", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestNilServiceReportsUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	CheckoutPreview(nil, nil, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
