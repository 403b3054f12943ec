// Package store implements the session state container of the storefront:
// the catalog, product card, cart and checkout slices, the closed set of
// actions that drive them, and the orchestration of backend calls.
//
// A Store is built per session with New and is never shared between
// sessions. All transitions happen under one mutex, so observers never see a
// partially applied action. Asynchronous results carry the token issued
// when their request started; a result whose token is no longer the latest
// for its slice is dropped, so a slow stale response never overwrites a
// newer one.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-state/internal/api"
	"github.com/fairyhunter13/storefront-state/internal/model"
	"github.com/fairyhunter13/storefront-state/internal/obs"
	"github.com/fairyhunter13/storefront-state/internal/queue"
)

// ErrRunnerClosed is recorded as the failure of a request whose job was
// refused by the runner.
var ErrRunnerClosed = errors.New("store: request rejected, service is shutting down")

// Runner executes asynchronous jobs. *queue.Manager satisfies it.
type Runner interface {
	Submit(job queue.Job) bool
}

type goRunner struct{}

func (goRunner) Submit(job queue.Job) bool {
	go job.Run(context.Background())
	return true
}

// Option configures a Store.
type Option func(*Store)

// WithRunner routes backend calls through r instead of one goroutine per call.
func WithRunner(r Runner) Option {
	return func(s *Store) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithFetchTimeout bounds every backend call. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithSessionID tags the store's log records.
func WithSessionID(id string) Option {
	return func(s *Store) { s.sessionID = id }
}

type listener struct {
	id int
	fn func(State)
}

// Store is the session state container.
type Store struct {
	catalog   api.Catalog
	cart      api.Cart
	runner    Runner
	timeout   time.Duration
	sessionID string
	jobKey    string
	log       *slog.Logger
	tokens    Sequencer

	mu           sync.Mutex
	state        State
	listeners    []listener
	nextListener int
	pending      []State
	delivering   bool
	inflight     int
	idle         chan struct{}
}

// New builds a Store bound to the given clients. The initial cart is read
// from cart.
func New(catalog api.Catalog, cart api.Cart, opts ...Option) *Store {
	s := &Store{
		catalog: catalog,
		cart:    cart,
		runner:  goRunner{},
		idle:    make(chan struct{}),
	}
	close(s.idle)
	for _, opt := range opts {
		opt(s)
	}
	s.log = obs.Logger.With("session_id", s.sessionID)
	s.jobKey = s.sessionID
	if s.jobKey == "" {
		s.jobKey = uuid.NewString()
	}
	s.state = State{
		Cart:    NewCartState(cart.Load()),
		details: map[int]DetailState{},
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called after every applied transition with
// the resulting snapshot. Listeners run in subscription order and one
// snapshot at a time; a listener may call Dispatch, the nested transition is
// delivered after the current one. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch applies an action. It never blocks on I/O; actions that do not
// change the state (including discarded stale results) notify nobody. A
// listener that panics is logged and skipped; the others still run.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next, ch := reduce(s.state, a)
	if !ch.any() {
		s.mu.Unlock()
		s.observe(a, false)
		return
	}
	s.state = next
	if ch.cart {
		s.cart.Save(next.Cart.Map())
	}
	s.pending = append(s.pending, next)
	if s.delivering {
		s.mu.Unlock()
		s.observe(a, true)
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		snap := s.pending[0]
		s.pending = s.pending[1:]
		ls := append([]listener(nil), s.listeners...)
		s.mu.Unlock()
		for _, l := range ls {
			s.notify(l, snap)
		}
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
	s.observe(a, true)
}

func (s *Store) notify(l listener, snap State) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("listener_panic", "listener", l.id, "panic", r)
		}
	}()
	l.fn(snap)
}

// LoadCatalog starts a catalog request and returns its token. The catalog
// moves to loading immediately; the result is applied when the request
// settles unless a newer LoadCatalog was issued meanwhile.
func (s *Store) LoadCatalog() uint64 {
	token := s.tokens.Next()
	s.Dispatch(LoadCatalogStart{Token: token})
	fail := func(err error) Action { return LoadCatalogFailure{Token: token, Err: err} }
	s.submit("load_catalog", "load_catalog", token, func(ctx context.Context) Action {
		items, err := s.catalog.FetchProducts(ctx)
		if err != nil {
			return fail(err)
		}
		return LoadCatalogSuccess{Token: token, Items: items}
	}, fail)
	return token
}

// LoadProduct starts a request for one product card and returns its token.
func (s *Store) LoadProduct(id int) uint64 {
	token := s.tokens.Next()
	s.Dispatch(LoadProductStart{ID: id, Token: token})
	fail := func(err error) Action { return LoadProductFailure{ID: id, Token: token, Err: err} }
	s.submit("load_product", fmt.Sprintf("load_product:%d", id), token, func(ctx context.Context) Action {
		p, err := s.catalog.FetchProduct(ctx, id)
		switch {
		case errors.Is(err, api.ErrNotFound):
			return LoadProductNotFound{ID: id, Token: token}
		case err != nil:
			return fail(err)
		}
		return LoadProductSuccess{ID: id, Token: token, Product: p}
	}, fail)
	return token
}

// Checkout validates the form and submits the current cart. Invalid input
// is returned as an error without touching the state.
func (s *Store) Checkout(form model.CheckoutForm) (uint64, error) {
	form = form.Normalize()
	if err := ValidateForm(form); err != nil {
		return 0, err
	}
	lines := s.State().Cart.Lines()
	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}
	token := s.tokens.Next()
	s.Dispatch(CheckoutStart{Token: token})
	fail := func(err error) Action { return CheckoutFailure{Token: token, Err: err} }
	s.submit("checkout", "checkout", token, func(ctx context.Context) Action {
		id, err := s.cart.Checkout(ctx, form, lines)
		if err != nil {
			return fail(err)
		}
		return CheckoutSuccess{Token: token, OrderID: id, Lines: lines}
	}, fail)
	return token, nil
}

// Settle waits until no backend call started by this store is in flight.
// It reports false if ctx ends first.
func (s *Store) Settle(ctx context.Context) bool {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return true
	case <-ctx.Done():
		return false
	}
}

// InFlight returns the number of backend calls not yet applied.
func (s *Store) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// submit hands fetch to the runner. Whatever happens to the job, exactly one
// of these follows: the fetched action is dispatched, fail is dispatched
// (refused job or panicking fetch), or a newer job for the same slice
// replaced it while queued. In every case the call stops counting as in
// flight.
func (s *Store) submit(name, slice string, token uint64, fetch func(ctx context.Context) Action, fail func(error) Action) {
	s.begin()
	job := queue.Job{
		Name:  name,
		Key:   s.jobKey + ":" + slice,
		Token: token,
		Run: func(ctx context.Context) {
			defer s.end()
			if s.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}
			s.Dispatch(s.call(ctx, name, token, fetch, fail))
		},
		Superseded: func() {
			obs.FetchResults.WithLabelValues(name, obs.OutcomeStale).Inc()
			s.end()
		},
	}
	if !s.runner.Submit(job) {
		s.log.Warn("job_rejected", "job", name, "token", token)
		s.Dispatch(fail(ErrRunnerClosed))
		s.end()
	}
}

func (s *Store) call(ctx context.Context, name string, token uint64, fetch func(ctx context.Context) Action, fail func(error) Action) (a Action) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job_panic", "job", name, "token", token, "panic", r)
			a = fail(fmt.Errorf("%s: panic: %v", name, r))
		}
	}()
	return fetch(ctx)
}

func (s *Store) begin() {
	s.mu.Lock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

// observe records metrics and logs for an action after it was reduced.
func (s *Store) observe(a Action, applied bool) {
	op, outcome := "", ""
	switch a := a.(type) {
	case LoadCatalogSuccess:
		op, outcome = "load_catalog", obs.OutcomeSuccess
		if applied {
			s.log.Info("catalog_loaded", "token", a.Token, "items", len(a.Items))
		}
	case LoadCatalogFailure:
		op, outcome = "load_catalog", obs.OutcomeFailure
		if applied {
			s.log.Warn("catalog_failed", "token", a.Token, "error", errorMessage(a.Err))
		}
	case LoadProductSuccess:
		op, outcome = "load_product", obs.OutcomeSuccess
	case LoadProductNotFound:
		op, outcome = "load_product", obs.OutcomeNotFound
	case LoadProductFailure:
		op, outcome = "load_product", obs.OutcomeFailure
		if applied {
			s.log.Warn("product_failed", "product_id", a.ID, "token", a.Token, "error", errorMessage(a.Err))
		}
	case CheckoutSuccess:
		op, outcome = "checkout", obs.OutcomeSuccess
		if applied {
			s.log.Info("checkout_complete", "token", a.Token, "order_id", a.OrderID)
		}
	case CheckoutFailure:
		op, outcome = "checkout", obs.OutcomeFailure
		if applied {
			s.log.Warn("checkout_failed", "token", a.Token, "error", errorMessage(a.Err))
		}
	case AddToCart, RemoveFromCart, SetQuantity, ClearCart:
		if applied {
			obs.CartActions.WithLabelValues(cartActionName(a)).Inc()
		}
		return
	default:
		return
	}
	if !applied {
		outcome = obs.OutcomeStale
		s.log.Debug("stale_result_discarded", "op", op, "action", fmt.Sprintf("%T", a))
	}
	obs.FetchResults.WithLabelValues(op, outcome).Inc()
}

func cartActionName(a Action) string {
	switch a.(type) {
	case AddToCart:
		return "add"
	case RemoveFromCart:
		return "remove"
	case SetQuantity:
		return "set_quantity"
	case ClearCart:
		return "clear"
	}
	return "unknown"
}
