// Package viewmodel keeps a client-side cart in step with the storefront.
//
// Quantity changes and removals are applied to the local snapshot first and
// then sent to the storefront. A failed call triggers a full resync from
// GET /cart so the view never keeps a state the storefront refused. Totals
// are always derived from the current snapshot and promo.
package viewmodel

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
)

// ErrClosed is returned by operations issued after, or completing after, Close.
var ErrClosed = errors.New("cart view closed")

const defaultRequestTimeout = 5 * time.Second

const (
	opLoad         = "load"
	opSetQuantity  = "set_quantity"
	opRemoveItem   = "remove_item"
	opApplyPromo   = "apply_promo"
	opRemovePromo  = "remove_promo"
	opAddItem      = "add_item"
	opRefreshCount = "refresh_count"
)

// Remote is the storefront cart API.
type Remote interface {
	GetCart(ctx context.Context) (*storefront.Cart, error)
	UpdateQuantity(ctx context.Context, id domain.ProductID, quantity int) error
	RemoveItem(ctx context.Context, id domain.ProductID) error
	ApplyPromo(ctx context.Context, code string) (domain.Promo, error)
	Count(ctx context.Context) (domain.Count, error)
	AddItem(ctx context.Context, id domain.ProductID, quantity int) error
}

// Config tunes a ViewModel.
type Config struct {
	Pricing domain.PricingConfig
	// RequestTimeout bounds each remote call. Zero means 5s.
	RequestTimeout time.Duration
}

// View is an immutable picture of the cart for rendering.
type View struct {
	// Ready is true once a cart has been loaded.
	Ready   bool
	Loading bool
	// Stale is set when a resync failed and the lines may not match the storefront.
	Stale   bool
	Lines   []domain.Line
	Promo   *domain.Promo
	Totals  domain.Totals
	Count   domain.Count
	Pending []domain.ProductID
	Err     error
}

// ViewModel owns the cart snapshot for one signed-in user. It is safe for
// concurrent use.
type ViewModel struct {
	remote  Remote
	session storefront.Session
	pricing domain.PricingConfig
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	snap    *domain.Snapshot
	promo   *domain.Promo
	count   domain.Count
	lastErr error
	stale   bool
	closed  bool

	// generation is bumped by Close; results carrying an older one are dropped.
	generation uint64
	loadSeq    uint64
	appliedSeq uint64
	mutSeq     uint64
	inflight   int
	loading    int

	// dirty means a resync is owed once no mutation is in flight.
	dirty   bool
	pending map[domain.ProductID]int

	listeners    map[int]func(View)
	nextListener int
}

// New creates a view model. Call Load before mutating.
func New(remote Remote, session storefront.Session, cfg Config, log *slog.Logger) *ViewModel {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ViewModel{
		remote:    remote,
		session:   session,
		pricing:   cfg.Pricing,
		timeout:   timeout,
		logger:    log,
		pending:   make(map[domain.ProductID]int),
		listeners: make(map[int]func(View)),
	}
}

// Load replaces the snapshot with the storefront's cart.
func (vm *ViewModel) Load(ctx context.Context) error {
	ctx = logger.WithOperation(ctx, opLoad)
	if err := vm.requireSession(); err != nil {
		return err
	}
	return vm.load(ctx)
}

type loadTicket struct {
	gen        uint64
	seq        uint64
	mutSeq     uint64
	overlapped bool
}

func (vm *ViewModel) load(ctx context.Context) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	vm.loadSeq++
	t := loadTicket{gen: vm.generation, seq: vm.loadSeq, mutSeq: vm.mutSeq, overlapped: vm.inflight > 0}
	vm.loading++
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()

	callCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	cart, err := vm.remote.GetCart(callCtx)
	cancel()

	log := logger.WithContext(ctx, vm.logger)

	vm.mu.Lock()
	if t.gen != vm.generation {
		vm.mu.Unlock()
		return ErrClosed
	}
	vm.loading--
	switch {
	case err != nil:
		vm.lastErr = err
		log.Warn("cart load failed",
			slog.String("kind", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()),
		)
	case t.seq < vm.appliedSeq:
		log.Debug("dropping superseded cart response", slog.Uint64("seq", t.seq))
	case t.overlapped || t.mutSeq != vm.mutSeq || vm.inflight > 0:
		// The response may predate a mutation; resync once mutations settle.
		vm.dirty = true
		log.Debug("deferring cart response that overlapped a mutation", slog.Uint64("seq", t.seq))
	default:
		vm.applyCartLocked(log, t.seq, cart)
	}
	publish = vm.publishLocked()
	vm.mu.Unlock()
	publish()
	return err
}

func (vm *ViewModel) applyCartLocked(log *slog.Logger, seq uint64, cart *storefront.Cart) {
	vm.snap = cart.Snapshot
	vm.count = cart.Snapshot.Count()
	vm.appliedSeq = seq
	vm.stale = false
	vm.dirty = false
	vm.lastErr = nil

	if got := cart.Snapshot.SubtotalCents(); got != cart.ReportedSubtotalCents {
		log.Warn("storefront subtotal disagrees with its lines",
			slog.Int64("reported_cents", cart.ReportedSubtotalCents),
			slog.Int64("computed_cents", got),
		)
	}
}

// SetQuantity sets a line's quantity. A quantity below one removes the line.
// Quantities above the line's known stock are rejected without a remote call,
// and setting the current quantity is a no-op.
func (vm *ViewModel) SetQuantity(ctx context.Context, id domain.ProductID, quantity int) error {
	if quantity < 1 {
		return vm.RemoveItem(ctx, id)
	}
	ctx = logger.WithOperation(ctx, opSetQuantity)
	return vm.mutate(ctx, mutation{
		id: id,
		apply: func(s *domain.Snapshot) (*domain.Snapshot, error) {
			if l, ok := s.Line(id); ok && l.Quantity == quantity {
				return nil, nil
			}
			return s.WithQuantity(id, quantity)
		},
		call: func(ctx context.Context) error {
			return vm.remote.UpdateQuantity(ctx, id, quantity)
		},
	})
}

// RemoveItem drops a line from the cart.
func (vm *ViewModel) RemoveItem(ctx context.Context, id domain.ProductID) error {
	ctx = logger.WithOperation(ctx, opRemoveItem)
	return vm.mutate(ctx, mutation{
		id: id,
		apply: func(s *domain.Snapshot) (*domain.Snapshot, error) {
			return s.Without(id)
		},
		call: func(ctx context.Context) error {
			return vm.remote.RemoveItem(ctx, id)
		},
	})
}

type mutation struct {
	id domain.ProductID
	// apply returns the optimistic snapshot, or nil for a no-op.
	apply func(*domain.Snapshot) (*domain.Snapshot, error)
	call  func(context.Context) error
}

func (vm *ViewModel) mutate(ctx context.Context, m mutation) error {
	if err := vm.requireSession(); err != nil {
		return err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	if vm.snap == nil {
		vm.mu.Unlock()
		return apperrors.ValidationRejected("Cart is not loaded")
	}
	next, err := m.apply(vm.snap)
	if err != nil || next == nil {
		vm.mu.Unlock()
		return err
	}

	before := vm.snap
	vm.snap = next
	vm.mutSeq++
	seq := vm.mutSeq
	vm.inflight++
	// Writes to the same line may reach the storefront in either order.
	overlapped := vm.pending[m.id] > 0
	vm.pending[m.id]++
	gen := vm.generation
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()

	callCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	callErr := m.call(callCtx)
	cancel()

	log := logger.WithContext(ctx, vm.logger).With(slog.Int64("product_id", int64(m.id)))

	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return ErrClosed
	}
	vm.inflight--
	if vm.pending[m.id] > 1 {
		overlapped = true
	}
	if vm.pending[m.id]--; vm.pending[m.id] <= 0 {
		delete(vm.pending, m.id)
	}
	if callErr != nil {
		vm.dirty = true
		vm.lastErr = callErr
		log.Warn("cart mutation rejected, resyncing",
			slog.String("kind", string(apperrors.KindOf(callErr))),
			slog.String("error", callErr.Error()),
		)
	} else {
		vm.count = vm.snap.Count()
		if overlapped {
			vm.dirty = true
			log.Debug("overlapping writes to one line, resyncing once settled")
		}
	}
	resync := vm.dirty && vm.inflight == 0
	publish = vm.publishLocked()
	vm.mu.Unlock()
	publish()

	if !resync {
		return callErr
	}

	loadErr := vm.load(ctx)
	if errors.Is(loadErr, ErrClosed) {
		return ErrClosed
	}
	if loadErr != nil {
		vm.recoverFromFailedResync(log, gen, seq, before, next, callErr)
	}
	return callErr
}

// recoverFromFailedResync restores the pre-mutation snapshot when this
// mutation failed and nothing has touched the snapshot since. Otherwise the
// view is marked stale.
func (vm *ViewModel) recoverFromFailedResync(log *slog.Logger, gen, seq uint64, before, optimistic *domain.Snapshot, callErr error) {
	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return
	}
	if callErr != nil && vm.mutSeq == seq && vm.inflight == 0 && vm.snap == optimistic {
		vm.snap = before
		vm.count = before.Count()
		vm.lastErr = callErr
		log.Info("resync failed, restored pre-mutation cart")
	} else {
		vm.stale = true
		log.Warn("resync failed, cart marked stale")
	}
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()
}

// ApplyPromo validates code with the storefront and makes it the active promo,
// replacing any previous one. On failure the active promo is unchanged.
func (vm *ViewModel) ApplyPromo(ctx context.Context, code string) (domain.Promo, error) {
	ctx = logger.WithOperation(ctx, opApplyPromo)
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return domain.Promo{}, apperrors.ValidationRejected("Please enter a promo code")
	}
	if err := vm.requireSession(); err != nil {
		return domain.Promo{}, err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return domain.Promo{}, ErrClosed
	}
	gen := vm.generation
	vm.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	promo, err := vm.remote.ApplyPromo(callCtx, code)
	cancel()

	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return domain.Promo{}, ErrClosed
	}
	if err != nil {
		vm.lastErr = err
	} else {
		vm.promo = &promo
		logger.WithContext(ctx, vm.logger).Info("promo applied",
			slog.String("code", promo.Code),
			slog.Int("discount_percent", promo.DiscountPercent),
		)
	}
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()

	if err != nil {
		return domain.Promo{}, err
	}
	return promo, nil
}

// RemovePromo clears the active promo. It never calls the storefront.
func (vm *ViewModel) RemovePromo() error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	vm.promo = nil
	publish := vm.publishLocked()
	vm.mu.Unlock()

	vm.logger.Debug("promo removed", slog.String("operation", opRemovePromo))
	publish()
	return nil
}

// AddItem adds units of a product and then reloads the cart, since the view
// has no product details for lines it has not seen.
func (vm *ViewModel) AddItem(ctx context.Context, id domain.ProductID, quantity int) error {
	ctx = logger.WithOperation(ctx, opAddItem)
	if quantity < 1 {
		return apperrors.ValidationRejected("Quantity must be at least 1")
	}
	if err := vm.requireSession(); err != nil {
		return err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	gen := vm.generation
	vm.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	err := vm.remote.AddItem(callCtx, id, quantity)
	cancel()

	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		vm.lastErr = err
		publish := vm.publishLocked()
		vm.mu.Unlock()
		publish()
		return err
	}
	vm.mu.Unlock()

	if loadErr := vm.load(ctx); loadErr != nil {
		if errors.Is(loadErr, ErrClosed) {
			return ErrClosed
		}
		vm.markStale()
	}
	return nil
}

// RefreshCount fetches the badge numbers without loading the whole cart.
func (vm *ViewModel) RefreshCount(ctx context.Context) (domain.Count, error) {
	ctx = logger.WithOperation(ctx, opRefreshCount)
	if err := vm.requireSession(); err != nil {
		return domain.Count{}, err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return domain.Count{}, ErrClosed
	}
	gen := vm.generation
	vm.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	count, err := vm.remote.Count(callCtx)
	cancel()

	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		return domain.Count{}, ErrClosed
	}
	if err != nil {
		vm.mu.Unlock()
		logger.WithContext(ctx, vm.logger).Debug("count refresh failed", slog.String("error", err.Error()))
		return domain.Count{}, err
	}
	vm.count = count
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()
	return count, nil
}

// Totals returns the price breakdown of the current snapshot and promo.
func (vm *ViewModel) Totals() domain.Totals {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return domain.ComputeTotals(vm.snap, vm.promo, vm.pricing)
}

// View returns the current state.
func (vm *ViewModel) View() View {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.viewLocked()
}

// Subscribe registers fn to receive every state change. fn runs outside the
// view model's lock and may call back into it. The returned func unsubscribes.
func (vm *ViewModel) Subscribe(fn func(View)) (unsubscribe func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return func() {}
	}
	id := vm.nextListener
	vm.nextListener++
	vm.listeners[id] = fn
	return func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		delete(vm.listeners, id)
	}
}

// Close tears the view model down. Calls still in flight finish against the
// storefront but their results are discarded and they return ErrClosed.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.closed = true
	vm.generation++
	clear(vm.listeners)
}

func (vm *ViewModel) requireSession() error {
	if _, ok := vm.session.Token(); !ok {
		return apperrors.Unauthenticated("Please sign in to view your cart")
	}
	return nil
}

func (vm *ViewModel) markStale() {
	vm.mu.Lock()
	vm.stale = true
	publish := vm.publishLocked()
	vm.mu.Unlock()
	publish()
}

func (vm *ViewModel) viewLocked() View {
	v := View{
		Ready:   vm.snap != nil,
		Loading: vm.loading > 0,
		Stale:   vm.stale,
		Totals:  domain.ComputeTotals(vm.snap, vm.promo, vm.pricing),
		Count:   vm.count,
		Err:     vm.lastErr,
	}
	if vm.snap != nil {
		v.Lines = vm.snap.Lines()
	}
	if vm.promo != nil {
		p := *vm.promo
		v.Promo = &p
	}
	for id := range vm.pending {
		v.Pending = append(v.Pending, id)
	}
	slices.Sort(v.Pending)
	return v
}

// publishLocked snapshots the view and listeners; the returned func delivers
// it and must be called after the lock is released.
func (vm *ViewModel) publishLocked() func() {
	if len(vm.listeners) == 0 {
		return func() {}
	}
	v := vm.viewLocked()
	fns := make([]func(View), 0, len(vm.listeners))
	for _, fn := range vm.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(v)
		}
	}
}
