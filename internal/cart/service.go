package cart

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/internal/notifications"
	"github.com/angelmondragon/storefront-gateway/internal/routeguard"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Mode is chosen per operation from the presence of a session.
type Mode string

const (
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

const productLookupConcurrency = 4

type cartBackend interface {
	GetCart(ctx context.Context, token string) (backend.ServerCart, error)
	AddCartItem(ctx context.Context, token string, item backend.CartItemRequest) error
	UpdateCartItem(ctx context.Context, token string, item backend.CartItemRequest) error
	RemoveCartItem(ctx context.Context, token string, item backend.CartItemRequest) error
	ClearCart(ctx context.Context, token string) error
	GetProduct(ctx context.Context, id string) (backend.Product, error)
}

type mutationRecorder interface {
	IncCartMutation(operation, mode, outcome string)
	IncStaleRefetch()
}

// Actor identifies who is mutating the cart. An empty Token means guest mode.
// UserID scopes the cached authenticated cart to one account.
type Actor struct {
	VisitorID string
	UserID    string
	Token     string
}

func (a Actor) mode() Mode {
	if a.Token != "" {
		return ModeAuthenticated
	}
	return ModeGuest
}

// ActorFrom builds an actor from a session snapshot.
func ActorFrom(visitorID string, snap session.Snapshot) Actor {
	actor := Actor{VisitorID: visitorID}
	if snap.Authenticated() {
		actor.Token = snap.Session.Token
		actor.UserID = snap.Session.User.ID
	}
	return actor
}

// AddInput is an add-to-cart request.
type AddInput struct {
	ProductID string            `json:"productId" validate:"required"`
	Quantity  int               `json:"quantity" validate:"omitempty,min=1,max=999"`
	Options   map[string]string `json:"selectedOptions,omitempty"`
}

// View is the cart as currently known.
type View struct {
	Mode  Mode `json:"mode"`
	Lines Cart `json:"lines"`
	// Stale is set when the authenticated cart could not be refreshed and the
	// last applied snapshot is returned instead.
	Stale bool `json:"stale,omitempty"`
}

// Result is the outcome of a cart mutation. On failure Lines is the untouched
// previous cart. RedirectTo is set when the backend rejected the session.
type Result struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Mode       Mode   `json:"mode"`
	Lines      Cart   `json:"lines"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Service exposes cart operations for both modes.
type Service interface {
	Get(ctx context.Context, actor Actor) (View, error)
	Add(ctx context.Context, actor Actor, input AddInput) Result
	UpdateQuantity(ctx context.Context, actor Actor, productID string, quantity int, options map[string]string) Result
	Remove(ctx context.Context, actor Actor, productID string, options map[string]string) Result
	Clear(ctx context.Context, actor Actor) Result
	Summary(ctx context.Context, actor Actor, sel currency.Selection) (Summary, error)
	AfterLogin(ctx context.Context, visitorID string, sess session.Session) error
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Store    profile.Store
	Locker   *profile.Locker
	Backend  cartBackend
	Notices  notifications.Recorder
	Recorder mutationRecorder
	Logger   *logger.Logger
	Shipping ShippingPolicy
	Now      func() time.Time
}

type service struct {
	store    profile.Store
	locker   *profile.Locker
	backend  cartBackend
	notices  notifications.Recorder
	recorder mutationRecorder
	logg     *logger.Logger
	shipping ShippingPolicy
	now      func() time.Time
	lastSeq  atomic.Int64
}

// snapshot is the last applied authenticated cart of one account.
type snapshot struct {
	UserID    string    `json:"userId,omitempty"`
	Version   int64     `json:"version"`
	Lines     Cart      `json:"lines"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("cart backend required")
	}
	if !params.Shipping.FeePerVendor.IsPositive() {
		return nil, fmt.Errorf("shipping fee per vendor must be positive")
	}
	svc := &service{
		store:    params.Store,
		locker:   params.Locker,
		backend:  params.Backend,
		notices:  params.Notices,
		recorder: params.Recorder,
		logg:     params.Logger,
		shipping: params.Shipping,
		now:      params.Now,
	}
	if svc.locker == nil {
		svc.locker = profile.NewLocker()
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Get(ctx context.Context, actor Actor) (View, error) {
	if actor.VisitorID == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "visitor id required")
	}
	if actor.mode() == ModeGuest {
		lines, err := s.loadGuest(ctx, actor.VisitorID)
		if err != nil {
			return View{}, err
		}
		return View{Mode: ModeGuest, Lines: lines}, nil
	}

	lines, err := s.refresh(ctx, actor)
	if err == nil {
		return View{Mode: ModeAuthenticated, Lines: lines}, nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		return View{}, err
	}
	cached, found, cacheErr := s.loadSnapshot(ctx, actor)
	if cacheErr != nil || !found {
		return View{}, err
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "serving cached cart")
	return View{Mode: ModeAuthenticated, Lines: cached.Lines, Stale: true}, nil
}

func (s *service) Add(ctx context.Context, actor Actor, input AddInput) Result {
	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return s.invalid(actor, "Product is required.")
	}

	if actor.mode() == ModeGuest {
		product, err := s.backend.GetProduct(ctx, productID)
		if err != nil {
			return s.fail(ctx, actor, "add", err, "Could not add the item to your cart.")
		}
		line := Line{
			ProductID:         product.ID,
			Name:              product.Name,
			UnitPrice:         product.Price,
			OriginalUnitPrice: product.OriginalPrice,
			ImageURL:          product.ImageURL(),
			Quantity:          quantity,
			SelectedOptions:   input.Options,
			VendorID:          product.VendorID,
			AddedAt:           s.now().UTC(),
		}
		res := s.mutateGuest(ctx, actor, "add", func(c Cart) Cart { return c.Add(line) })
		if res.Success {
			s.notify(ctx, actor.VisitorID, enums.NoticeSuccess, product.Name+" added to cart")
		}
		return res
	}

	req := backend.CartItemRequest{ProductID: productID, Quantity: quantity, SelectedVariants: input.Options}
	res := s.mutateRemote(ctx, actor, "add", func(ctx context.Context) error {
		return s.backend.AddCartItem(ctx, actor.Token, req)
	})
	if res.Success {
		s.notify(ctx, actor.VisitorID, enums.NoticeSuccess, "Item added to cart")
	}
	return res
}

func (s *service) UpdateQuantity(ctx context.Context, actor Actor, productID string, quantity int, options map[string]string) Result {
	if quantity <= 0 {
		return s.Remove(ctx, actor, productID, options)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return s.invalid(actor, "Product is required.")
	}
	if actor.mode() == ModeGuest {
		return s.mutateGuest(ctx, actor, "update", func(c Cart) Cart { return c.SetQuantity(productID, options, quantity) })
	}
	req := backend.CartItemRequest{ProductID: productID, Quantity: quantity, SelectedVariants: options}
	return s.mutateRemote(ctx, actor, "update", func(ctx context.Context) error {
		return s.backend.UpdateCartItem(ctx, actor.Token, req)
	})
}

func (s *service) Remove(ctx context.Context, actor Actor, productID string, options map[string]string) Result {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return s.invalid(actor, "Product is required.")
	}
	if actor.mode() == ModeGuest {
		return s.mutateGuest(ctx, actor, "remove", func(c Cart) Cart { return c.Remove(productID, options) })
	}
	req := backend.CartItemRequest{ProductID: productID, SelectedVariants: options}
	return s.mutateRemote(ctx, actor, "remove", func(ctx context.Context) error {
		return s.backend.RemoveCartItem(ctx, actor.Token, req)
	})
}

func (s *service) Clear(ctx context.Context, actor Actor) Result {
	if actor.mode() == ModeGuest {
		return s.mutateGuest(ctx, actor, "clear", func(Cart) Cart { return Cart{} })
	}
	return s.mutateRemote(ctx, actor, "clear", func(ctx context.Context) error {
		return s.backend.ClearCart(ctx, actor.Token)
	})
}

func (s *service) Summary(ctx context.Context, actor Actor, sel currency.Selection) (Summary, error) {
	view, err := s.Get(ctx, actor)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(view, s.shipping, sel), nil
}

// mutateGuest applies fn to the stored guest cart under the visitor lock.
func (s *service) mutateGuest(ctx context.Context, actor Actor, op string, fn func(Cart) Cart) Result {
	if actor.VisitorID == "" {
		return s.invalid(actor, "Your browser session is missing. Please reload the page.")
	}
	unlock := s.locker.Lock(actor.VisitorID)
	defer unlock()

	current, err := s.loadGuest(ctx, actor.VisitorID)
	if err != nil {
		return s.fail(ctx, actor, op, err, "Could not update your cart.")
	}
	next := fn(current.Clone())
	if err := profile.SetJSON(ctx, s.store, actor.VisitorID, profile.KeyCart, next); err != nil {
		return s.fail(ctx, actor, op, err, "Could not update your cart.")
	}
	s.record(op, ModeGuest, "success")
	return Result{Success: true, Mode: ModeGuest, Lines: next}
}

// mutateRemote runs the backend mutation then refetches the whole cart. On
// any failure the previously applied snapshot is returned untouched.
func (s *service) mutateRemote(ctx context.Context, actor Actor, op string, call func(context.Context) error) Result {
	if err := call(ctx); err != nil {
		return s.fail(ctx, actor, op, err, "Could not update your cart.")
	}
	lines, err := s.refresh(ctx, actor)
	if err != nil {
		return s.fail(ctx, actor, op, err, "Your cart was updated but could not be reloaded.")
	}
	s.record(op, ModeAuthenticated, "success")
	return Result{Success: true, Mode: ModeAuthenticated, Lines: lines}
}

// refresh fetches the server cart and applies it unless a refetch that
// started later has already been applied. It returns the cart now current.
func (s *service) refresh(ctx context.Context, actor Actor) (Cart, error) {
	version := s.nextVersion()

	server, err := s.backend.GetCart(ctx, actor.Token)
	if err != nil {
		return nil, err
	}
	lines, err := s.toLines(ctx, server)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(actor.VisitorID)
	defer unlock()

	current, found, err := s.loadSnapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	if found && current.Version > version {
		if s.recorder != nil {
			s.recorder.IncStaleRefetch()
		}
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"version": version, "applied_version": current.Version}), "discarding stale cart refetch")
		return current.Lines, nil
	}

	snap := snapshot{UserID: actor.UserID, Version: version, Lines: lines, FetchedAt: s.now().UTC()}
	if err := profile.SetJSON(ctx, s.store, actor.VisitorID, profile.KeyCartSnapshot, snap); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart snapshot")
	}
	return lines, nil
}

// nextVersion hands out strictly increasing stamps seeded from the clock so
// stamps from different processes still order by start time.
func (s *service) nextVersion() int64 {
	for {
		last := s.lastSeq.Load()
		next := s.now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if s.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}

// toLines converts the server cart, loading product details for items the
// backend returned as bare ids.
func (s *service) toLines(ctx context.Context, server backend.ServerCart) (Cart, error) {
	products := make([]*backend.Product, len(server.Items))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(productLookupConcurrency)
	for i, item := range server.Items {
		if item.Product.Product != nil {
			products[i] = item.Product.Product
			continue
		}
		i, id := i, item.Product.ID
		group.Go(func() error {
			product, err := s.backend.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			products[i] = &product
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	lines := make(Cart, 0, len(server.Items))
	for i, item := range server.Items {
		product := products[i]
		lines = append(lines, Line{
			ProductID:         item.Product.ID,
			Name:              product.Name,
			UnitPrice:         product.Price,
			OriginalUnitPrice: product.OriginalPrice,
			ImageURL:          product.ImageURL(),
			Quantity:          item.Quantity,
			SelectedOptions:   cloneOptions(item.SelectedVariants),
			VendorID:          product.VendorID,
			AddedAt:           item.AddedAt,
		})
	}
	return lines, nil
}

// AfterLogin pushes the guest cart to the account cart. Lines that were
// accepted leave the guest cart; rejected ones stay and are reported.
func (s *service) AfterLogin(ctx context.Context, visitorID string, sess session.Session) error {
	unlock := s.locker.Lock(visitorID)
	guest, err := s.loadGuest(ctx, visitorID)
	unlock()
	if err != nil || len(guest) == 0 {
		return err
	}

	var (
		mergeErr error
		kept     Cart
	)
	for _, line := range guest {
		req := backend.CartItemRequest{ProductID: line.ProductID, Quantity: line.Quantity, SelectedVariants: line.SelectedOptions}
		if err := s.backend.AddCartItem(ctx, sess.Token, req); err != nil {
			mergeErr = multierr.Append(mergeErr, fmt.Errorf("merge %s: %w", line.ProductID, err))
			kept = append(kept, line)
		}
	}

	unlock = s.locker.Lock(visitorID)
	if len(kept) == 0 {
		err = s.store.Delete(ctx, visitorID, profile.KeyCart)
	} else {
		err = profile.SetJSON(ctx, s.store, visitorID, profile.KeyCart, kept)
	}
	unlock()
	mergeErr = multierr.Append(mergeErr, err)

	actor := Actor{VisitorID: visitorID, UserID: sess.User.ID, Token: sess.Token}
	if _, err := s.refresh(ctx, actor); err != nil {
		mergeErr = multierr.Append(mergeErr, err)
	}

	merged := len(guest) - len(kept)
	s.record("merge", ModeAuthenticated, outcomeOf(mergeErr))
	if len(kept) > 0 {
		s.notify(ctx, visitorID, enums.NoticeError, fmt.Sprintf("%d item(s) from your guest cart could not be added to your account.", len(kept)))
	} else if merged > 0 {
		s.notify(ctx, visitorID, enums.NoticeInfo, "Items from your guest cart were added to your account.")
	}
	return mergeErr
}

func (s *service) loadGuest(ctx context.Context, visitorID string) (Cart, error) {
	var lines Cart
	found, err := profile.GetJSON(ctx, s.store, visitorID, profile.KeyCart, &lines)
	if err != nil && found {
		// An unreadable guest cart is treated as empty rather than blocking the visitor.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding unreadable guest cart")
		return Cart{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if lines == nil {
		lines = Cart{}
	}
	return lines, nil
}

// loadSnapshot reports a snapshot written for another account as absent.
func (s *service) loadSnapshot(ctx context.Context, actor Actor) (snapshot, bool, error) {
	var snap snapshot
	found, err := profile.GetJSON(ctx, s.store, actor.VisitorID, profile.KeyCartSnapshot, &snap)
	if err != nil && found {
		return snapshot{}, false, nil
	}
	if err != nil {
		return snapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}
	if found && snap.UserID != actor.UserID {
		return snapshot{}, false, nil
	}
	return snap, found, nil
}

func (s *service) previous(ctx context.Context, actor Actor) Cart {
	if actor.VisitorID == "" {
		return Cart{}
	}
	if actor.mode() == ModeGuest {
		lines, err := s.loadGuest(ctx, actor.VisitorID)
		if err != nil {
			return Cart{}
		}
		return lines
	}
	snap, _, err := s.loadSnapshot(ctx, actor)
	if err != nil || snap.Lines == nil {
		return Cart{}
	}
	return snap.Lines
}

func (s *service) fail(ctx context.Context, actor Actor, op string, err error, message string) Result {
	mode := actor.mode()
	s.record(op, mode, "failed")
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{"cart_op": op, "cart_mode": string(mode)}), "cart mutation failed", err)

	var redirect string
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
			message = typed.Message()
		case pkgerrors.CodeUnauthorized:
			message = "Your session has expired. Please sign in again."
			redirect = routeguard.LoginPath
		}
	}
	s.notify(ctx, actor.VisitorID, enums.NoticeError, message)
	return Result{Success: false, Error: message, Mode: mode, Lines: s.previous(ctx, actor), RedirectTo: redirect}
}

func (s *service) invalid(actor Actor, message string) Result {
	return Result{Success: false, Error: message, Mode: actor.mode(), Lines: Cart{}}
}

func (s *service) notify(ctx context.Context, visitorID string, level enums.NoticeLevel, message string) {
	if s.notices == nil || visitorID == "" {
		return
	}
	if err := s.notices.Record(ctx, visitorID, level, message); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to record cart notice")
	}
}

func (s *service) record(op string, mode Mode, outcome string) {
	if s.recorder != nil {
		s.recorder.IncCartMutation(op, string(mode), outcome)
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "partial"
	}
	return "success"
}
