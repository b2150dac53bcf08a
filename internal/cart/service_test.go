package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/internal/notifications"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	products map[string]backend.Product
	server   []backend.ServerCartItem
	addErr   error
	getErr   error
	adds     []backend.CartItemRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{products: map[string]backend.Product{
		"p1": {ID: "p1", Name: "Lamp", Price: price("25"), VendorID: "v1"},
		"p2": {ID: "p2", Name: "Mug", Price: price("12.5"), VendorID: "v2"},
	}}
}

func (f *fakeBackend) GetCart(context.Context, string) (backend.ServerCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return backend.ServerCart{}, f.getErr
	}
	items := make([]backend.ServerCartItem, len(f.server))
	copy(items, f.server)
	return backend.ServerCart{Items: items}, nil
}

func (f *fakeBackend) AddCartItem(_ context.Context, _ string, item backend.CartItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.adds = append(f.adds, item)
	for i, existing := range f.server {
		if LineKey(existing.Product.ID, existing.SelectedVariants) == LineKey(item.ProductID, item.SelectedVariants) {
			f.server[i].Quantity += item.Quantity
			return nil
		}
	}
	f.server = append(f.server, backend.ServerCartItem{
		Product:          backend.ProductRef{ID: item.ProductID},
		Quantity:         item.Quantity,
		SelectedVariants: item.SelectedVariants,
		AddedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	return nil
}

func (f *fakeBackend) UpdateCartItem(_ context.Context, _ string, item backend.CartItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.server {
		if existing.Product.ID == item.ProductID {
			f.server[i].Quantity = item.Quantity
		}
	}
	return nil
}

func (f *fakeBackend) RemoveCartItem(_ context.Context, _ string, item backend.CartItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.server[:0]
	for _, existing := range f.server {
		if existing.Product.ID != item.ProductID {
			kept = append(kept, existing)
		}
	}
	f.server = kept
	return nil
}

func (f *fakeBackend) ClearCart(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.server = nil
	return nil
}

func (f *fakeBackend) GetProduct(_ context.Context, id string) (backend.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok {
		return backend.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return product, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	mutations map[string]int
	stale     int
}

func (r *fakeRecorder) IncCartMutation(op, mode, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutations == nil {
		r.mutations = map[string]int{}
	}
	r.mutations[op+"/"+mode+"/"+outcome]++
}

func (r *fakeRecorder) IncStaleRefetch() {
	r.mu.Lock()
	r.stale++
	r.mu.Unlock()
}

type harness struct {
	svc      *service
	store    *profile.MemoryStore
	backend  *fakeBackend
	notices  notifications.Service
	recorder *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := profile.NewMemoryStore()
	locker := profile.NewLocker()
	notices, err := notifications.NewService(store)
	require.NoError(t, err)
	be := newFakeBackend()
	rec := &fakeRecorder{}
	svc, err := NewService(ServiceParams{
		Store:    store,
		Locker:   locker,
		Backend:  be,
		Notices:  notices,
		Recorder: rec,
		Shipping: ShippingPolicy{FreeThreshold: price("100"), FeePerVendor: price("7")},
	})
	require.NoError(t, err)
	return &harness{svc: svc.(*service), store: store, backend: be, notices: notices, recorder: rec}
}

func TestGuestAddSamePairAccumulates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest := Actor{VisitorID: "v1"}
	opts := map[string]string{"size": "M"}

	require.True(t, h.svc.Add(ctx, guest, AddInput{ProductID: "p1", Quantity: 1, Options: opts}).Success)
	res := h.svc.Add(ctx, guest, AddInput{ProductID: "p1", Quantity: 2, Options: map[string]string{"size": "M"}})
	require.True(t, res.Success)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 3, res.Lines[0].Quantity)
	assert.True(t, res.Lines[0].Subtotal().Equal(price("75")))

	view, err := h.svc.Get(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, ModeGuest, view.Mode)
	assert.Equal(t, 3, view.Lines.ItemsCount())
	assert.Empty(t, h.backend.adds, "guest mode must not touch the server cart")
}

func TestGuestUpdateToZeroRemoves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest := Actor{VisitorID: "v1"}
	h.svc.Add(ctx, guest, AddInput{ProductID: "p1"})
	h.svc.Add(ctx, guest, AddInput{ProductID: "p2"})

	res := h.svc.UpdateQuantity(ctx, guest, "p1", 0, nil)
	require.True(t, res.Success)
	assert.False(t, res.Lines.IsInCart("p1", nil))
	assert.True(t, res.Lines.IsInCart("p2", nil))

	res = h.svc.Clear(ctx, guest)
	require.True(t, res.Success)
	assert.Empty(t, res.Lines)
}

func TestGuestAddUnknownProductFails(t *testing.T) {
	h := newHarness(t)
	res := h.svc.Add(context.Background(), Actor{VisitorID: "v1"}, AddInput{ProductID: "missing"})
	assert.False(t, res.Success)
	assert.Equal(t, "Product not found", res.Error)
}

func TestAuthenticatedAddRefetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := Actor{VisitorID: "v1", Token: "tok"}

	res := h.svc.Add(ctx, actor, AddInput{ProductID: "p2", Quantity: 2})
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "Mug", res.Lines[0].Name)
	assert.Equal(t, "v2", res.Lines[0].VendorID)
	assert.Equal(t, 1, h.recorder.mutations["add/authenticated/success"])
}

func TestAuthenticatedAddFailureLeavesCartUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := Actor{VisitorID: "v1", Token: "tok"}
	require.True(t, h.svc.Add(ctx, actor, AddInput{ProductID: "p1"}).Success)
	_, _ = h.notices.Drain(ctx, "v1")

	h.backend.addErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("network down"), "cart_add request failed")
	res := h.svc.Add(ctx, actor, AddInput{ProductID: "p2"})
	assert.False(t, res.Success)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "p1", res.Lines[0].ProductID)

	notices, err := h.notices.Drain(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, enums.NoticeError, notices[0].Level)
	assert.Equal(t, 1, h.recorder.mutations["add/authenticated/failed"])
}

func TestStaleRefetchDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := Actor{VisitorID: "v1", Token: "tok"}

	newer := snapshot{Version: time.Now().Add(time.Hour).UnixNano(), Lines: Cart{{ProductID: "p1", Name: "Lamp", UnitPrice: price("25"), Quantity: 4}}}
	require.NoError(t, profile.SetJSON(ctx, h.store, "v1", profile.KeyCartSnapshot, newer))

	view, err := h.svc.Get(ctx, actor)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 4, view.Lines[0].Quantity, "older refetch must not overwrite a newer snapshot")
	assert.Equal(t, 1, h.recorder.stale)
}

func TestRefetchVersionsIncrease(t *testing.T) {
	h := newHarness(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time { return fixed }
	a := h.svc.nextVersion()
	b := h.svc.nextVersion()
	assert.Greater(t, b, a)
}

func TestAuthenticatedGetServesCacheWhenBackendDown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := Actor{VisitorID: "v1", Token: "tok"}
	require.True(t, h.svc.Add(ctx, actor, AddInput{ProductID: "p1"}).Success)

	h.backend.getErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	view, err := h.svc.Get(ctx, actor)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Len(t, view.Lines, 1)

	h.backend.getErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "expired")
	_, err = h.svc.Get(ctx, actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAfterLoginMergesGuestCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc.Add(ctx, Actor{VisitorID: "v1"}, AddInput{ProductID: "p1", Quantity: 2})
	h.svc.Add(ctx, Actor{VisitorID: "v1"}, AddInput{ProductID: "p2", Options: map[string]string{"color": "blue"}})

	err := h.svc.AfterLogin(ctx, "v1", session.Session{Token: "tok", User: backend.User{ID: "u1"}})
	require.NoError(t, err)
	require.Len(t, h.backend.adds, 2)

	_, err = h.store.Get(ctx, "v1", profile.KeyCart)
	assert.ErrorIs(t, err, profile.ErrNotFound, "merged guest cart should be cleared")

	view, err := h.svc.Get(ctx, Actor{VisitorID: "v1", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Lines.ItemsCount())
}

func TestAfterLoginKeepsRejectedLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc.Add(ctx, Actor{VisitorID: "v1"}, AddInput{ProductID: "p1"})
	h.backend.addErr = pkgerrors.New(pkgerrors.CodeConflict, "out of stock")

	err := h.svc.AfterLogin(ctx, "v1", session.Session{Token: "tok"})
	require.Error(t, err)

	guest, err := h.svc.Get(ctx, Actor{VisitorID: "v1"})
	require.NoError(t, err)
	assert.Len(t, guest.Lines, 1)
}

func TestSummaryFormatsInSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guest := Actor{VisitorID: "v1"}
	h.svc.Add(ctx, guest, AddInput{ProductID: "p1", Quantity: 2})
	h.svc.Add(ctx, guest, AddInput{ProductID: "p2"})

	info, _ := currency.Lookup(enums.CurrencyEUR)
	summary, err := h.svc.Summary(ctx, guest, currency.Selection{Info: info})
	require.NoError(t, err)
	assert.True(t, summary.Total.Base.Equal(price("62.5")))
	assert.True(t, summary.ShippingCost.Base.Equal(price("14")))
	assert.Equal(t, "€22.95", summary.GrandTotal.Display)
	assert.Len(t, summary.Vendors, 2)
	assert.False(t, summary.FreeShipping)
}

// fakeAuth signs in whichever account the email names.
type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, req backend.LoginRequest) (backend.AuthPayload, error) {
	id := "user-" + req.Email[:1]
	return backend.AuthPayload{Token: "tok-" + id, User: &backend.User{ID: id, Email: req.Email, Role: enums.RoleCustomer}}, nil
}

func (fakeAuth) Register(context.Context, backend.RegisterRequest) (backend.AuthPayload, error) {
	return backend.AuthPayload{}, errors.New("not used")
}

func (fakeAuth) LoginWithGoogle(context.Context, backend.GoogleLoginRequest) (backend.AuthPayload, error) {
	return backend.AuthPayload{}, errors.New("not used")
}

func (fakeAuth) ForgotPassword(context.Context, backend.ForgotPasswordRequest) error { return nil }

func (fakeAuth) ResetPassword(context.Context, backend.ResetPasswordRequest) error { return nil }

func signIn(t *testing.T, sessions session.Service, email string) Actor {
	t.Helper()
	ctx := context.Background()
	res := sessions.Login(ctx, "v1", session.LoginRequest{Email: email, Password: "secret"})
	require.True(t, res.Success, res.Error)
	snap, err := sessions.Restore(ctx, "v1")
	require.NoError(t, err)
	return ActorFrom("v1", snap)
}

func TestCachedCartDoesNotOutliveLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessions, err := session.NewService(session.ServiceParams{Store: h.store, Backend: fakeAuth{}, Listeners: []session.LoginListener{h.svc}})
	require.NoError(t, err)

	first := signIn(t, sessions, "a@example.com")
	require.True(t, h.svc.Add(ctx, first, AddInput{ProductID: "p1", Quantity: 4}).Success)

	require.NoError(t, sessions.Logout(ctx, "v1"))
	_, err = h.store.Get(ctx, "v1", profile.KeyCartSnapshot)
	require.ErrorIs(t, err, profile.ErrNotFound)

	second := signIn(t, sessions, "b@example.com")
	h.backend.getErr = pkgerrors.New(pkgerrors.CodeDependency, "down")

	view, err := h.svc.Get(ctx, second)
	assert.Error(t, err)
	assert.Empty(t, view.Lines, "previous account's lines must not be served")
	h.backend.addErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	res := h.svc.Add(ctx, second, AddInput{ProductID: "p2"})
	assert.False(t, res.Success)
	assert.Empty(t, res.Lines)
}

func TestSnapshotOfAnotherAccountIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := Actor{VisitorID: "v1", UserID: "u-a", Token: "tok-a"}
	require.True(t, h.svc.Add(ctx, owner, AddInput{ProductID: "p1", Quantity: 2}).Success)

	h.backend.getErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	view, err := h.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Equal(t, 2, view.Lines.ItemsCount())

	_, err = h.svc.Get(ctx, Actor{VisitorID: "v1", UserID: "u-b", Token: "tok-b"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRejectedSessionRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := Actor{VisitorID: "v1", UserID: "u1", Token: "tok"}

	h.backend.addErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")
	res := h.svc.Add(ctx, actor, AddInput{ProductID: "p1"})
	assert.False(t, res.Success)
	assert.Equal(t, "/login", res.RedirectTo)
	assert.Equal(t, "Your session has expired. Please sign in again.", res.Error)

	h.backend.addErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	res = h.svc.Add(ctx, actor, AddInput{ProductID: "p1"})
	assert.Empty(t, res.RedirectTo)
}
