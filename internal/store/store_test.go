package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-state/internal/api"
	"github.com/fairyhunter13/storefront-state/internal/api/fake"
	"github.com/fairyhunter13/storefront-state/internal/config"
	"github.com/fairyhunter13/storefront-state/internal/model"
	"github.com/fairyhunter13/storefront-state/internal/queue"
	"github.com/fairyhunter13/storefront-state/internal/store"
)

// manualRunner holds jobs until the test runs them, in any order.
type manualRunner struct {
	mu     sync.Mutex
	jobs   []queue.Job
	reject bool
}

func (r *manualRunner) Submit(job queue.Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

func (r *manualRunner) run(t *testing.T, i int) {
	t.Helper()
	r.mu.Lock()
	require.Less(t, i, len(r.jobs))
	job := r.jobs[i]
	r.mu.Unlock()
	job.Run(context.Background())
}

func settle(t *testing.T, s *store.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, s.Settle(ctx), "store did not settle")
}

func recordStatuses(s *store.Store) (func() []store.Status, func()) {
	var mu sync.Mutex
	var got []store.Status
	unsub := s.Subscribe(func(st store.State) {
		mu.Lock()
		got = append(got, st.Catalog.Status)
		mu.Unlock()
	})
	return func() []store.Status {
		mu.Lock()
		defer mu.Unlock()
		return append([]store.Status(nil), got...)
	}, unsub
}

func TestLoadCatalog_EndToEnd(t *testing.T) {
	cat := fake.NewCatalog(model.Product{ID: 123, Name: "qqq", Price: 999})
	s := store.New(cat, fake.NewCart())
	statuses, unsub := recordStatuses(s)
	defer unsub()

	s.LoadCatalog()
	settle(t, s)

	st := s.State()
	assert.Equal(t, store.StatusLoaded, st.Catalog.Status)
	assert.False(t, st.Catalog.IsLoading())
	assert.Empty(t, st.Catalog.Err())
	assert.Equal(t, []model.Product{{ID: 123, Name: "qqq", Price: 999}}, st.Catalog.Products())
	assert.Equal(t, []store.Status{store.StatusLoading, store.StatusLoaded}, statuses())
}

func TestLoadCatalog_LatestIssuedWins_ManualOrder(t *testing.T) {
	first := []model.Product{{ID: 1, Name: "first", Price: 1}}
	second := []model.Product{{ID: 2, Name: "second", Price: 2}}
	cat := fake.NewCatalog()
	r := &manualRunner{}
	s := store.New(cat, fake.NewCart(), store.WithRunner(r))
	statuses, unsub := recordStatuses(s)
	defer unsub()

	t1 := s.LoadCatalog()
	t2 := s.LoadCatalog()
	require.Greater(t, t2, t1)
	require.Equal(t, 2, s.InFlight())

	cat.SetProducts(second...)
	r.run(t, 1)
	cat.SetProducts(first...)
	r.run(t, 0)

	st := s.State()
	assert.Equal(t, store.StatusLoaded, st.Catalog.Status)
	assert.Equal(t, second, st.Catalog.Products())
	assert.Equal(t, t2, st.Catalog.Token)
	assert.Equal(t, 0, s.InFlight())
	// the stale response produced no notification
	assert.Equal(t, []store.Status{store.StatusLoading, store.StatusLoading, store.StatusLoaded}, statuses())
}

func TestLoadCatalog_LatestIssuedWins_Concurrent(t *testing.T) {
	first := []model.Product{{ID: 1, Name: "first", Price: 1}}
	second := []model.Product{{ID: 2, Name: "second", Price: 2}}
	cat := fake.NewCatalog(second...)
	release := make(chan struct{})
	cat.Before(func(ctx context.Context, call int) error {
		if call == 1 {
			<-release
		}
		return nil
	})
	s := store.New(cat, fake.NewCart())

	s.LoadCatalog()
	require.Eventually(t, func() bool { return cat.Calls() == 1 }, time.Second, 5*time.Millisecond)
	s.LoadCatalog()
	require.Eventually(t, func() bool { return s.State().Catalog.Status == store.StatusLoaded }, time.Second, 5*time.Millisecond)

	cat.SetProducts(first...)
	close(release)
	settle(t, s)

	assert.Equal(t, second, s.State().Catalog.Products())
}

func TestLoadCatalog_FailureThenRetry(t *testing.T) {
	cat := fake.NewCatalog(model.Product{ID: 1, Name: "a", Price: 5})
	cat.SetError(&api.TransportError{Op: "fetch products", StatusCode: 503})
	s := store.New(cat, fake.NewCart())

	s.LoadCatalog()
	settle(t, s)
	st := s.State()
	assert.Equal(t, store.StatusFailed, st.Catalog.Status)
	assert.NotEmpty(t, st.Catalog.Err())
	assert.Contains(t, st.Catalog.Err(), "503")
	assert.Empty(t, st.Catalog.Products())
	assert.Equal(t, 1, cat.Calls(), "no automatic retry")

	cat.SetError(nil)
	s.LoadCatalog()
	settle(t, s)
	st = s.State()
	assert.Equal(t, store.StatusLoaded, st.Catalog.Status)
	assert.Empty(t, st.Catalog.Err())
	assert.Len(t, st.Catalog.Products(), 1)
}

func TestLoadCatalog_EmptyIsDistinctFromFailure(t *testing.T) {
	s := store.New(fake.NewCatalog(), fake.NewCart())
	s.LoadCatalog()
	settle(t, s)
	st := s.State()
	assert.Equal(t, store.StatusLoaded, st.Catalog.Status)
	assert.Empty(t, st.Catalog.Products())
	assert.Empty(t, st.Catalog.Err())
}

func TestLoadCatalog_RunnerRejects(t *testing.T) {
	r := &manualRunner{reject: true}
	s := store.New(fake.NewCatalog(), fake.NewCart(), store.WithRunner(r))
	s.LoadCatalog()
	st := s.State()
	assert.Equal(t, store.StatusFailed, st.Catalog.Status)
	assert.Equal(t, store.ErrRunnerClosed.Error(), st.Catalog.Err())
	assert.Equal(t, 0, s.InFlight())
	settle(t, s)
}

func TestLoadCatalog_FetchTimeout(t *testing.T) {
	cat := fake.NewCatalog()
	cat.Before(func(ctx context.Context, call int) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s := store.New(cat, fake.NewCart(), store.WithFetchTimeout(20*time.Millisecond))
	s.LoadCatalog()
	settle(t, s)
	st := s.State()
	assert.Equal(t, store.StatusFailed, st.Catalog.Status)
	assert.Contains(t, st.Catalog.Err(), "deadline")
}

func TestLoadCatalog_WithQueueManager(t *testing.T) {
	t.Setenv("WORKER_MIN", "1")
	t.Setenv("WORKER_COUNT", "1")
	cfg := config.Load()
	mgr := queue.NewManager(cfg, queue.New(8))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()

	s := store.New(fake.NewCatalog(model.Product{ID: 3, Name: "c", Price: 3}), fake.NewCart(), store.WithRunner(mgr))
	s.LoadCatalog()
	settle(t, s)
	assert.Equal(t, store.StatusLoaded, s.State().Catalog.Status)
}

func TestCartScenarios(t *testing.T) {
	s := store.New(fake.NewCatalog(), fake.NewCart())
	s.Dispatch(store.RemoveFromCart{ProductID: 999})
	assert.Empty(t, s.State().Cart.Lines())

	s.Dispatch(store.AddToCart{ProductID: 123})
	s.Dispatch(store.AddToCart{ProductID: 123})
	s.Dispatch(store.RemoveFromCart{ProductID: 123})
	assert.Equal(t, []model.CartLine{{ProductID: 123, Quantity: 1}}, s.State().Cart.Lines())
}

func TestCart_SnapshotPriceFromCatalog(t *testing.T) {
	cat := fake.NewCatalog(model.Product{ID: 123, Name: "qqq", Price: 999})
	s := store.New(cat, fake.NewCart())
	s.LoadCatalog()
	settle(t, s)

	s.Dispatch(store.AddToCart{ProductID: 123})
	s.Dispatch(store.SetQuantity{ProductID: 123, Quantity: 2})

	cat.SetProducts(model.Product{ID: 123, Name: "qqq", Price: 1})
	s.LoadCatalog()
	settle(t, s)
	s.Dispatch(store.AddToCart{ProductID: 123})

	cart := s.State().Cart
	line, ok := cart.Line(123)
	require.True(t, ok)
	assert.Equal(t, "qqq", line.Name)
	assert.Equal(t, 999, line.Price)
	assert.Equal(t, 3, cart.TotalItems())
	assert.Equal(t, 3*999, cart.TotalPrice())
}

func TestCart_WritesThroughToCartAPI(t *testing.T) {
	cart := fake.NewCart()
	cart.Save(map[int]model.CartLine{7: {ProductID: 7, Quantity: 2, Name: "saved", Price: 3}})

	s := store.New(fake.NewCatalog(), cart)
	line, ok := s.State().Cart.Line(7)
	require.True(t, ok, "initial cart is read from the cart client")
	assert.Equal(t, 2, line.Quantity)

	s.Dispatch(store.AddToCart{ProductID: 8})
	s.Dispatch(store.RemoveFromCart{ProductID: 7})
	saved := cart.Load()
	assert.Equal(t, 1, saved[7].Quantity)
	assert.Equal(t, 1, saved[8].Quantity)

	s.Dispatch(store.ClearCart{})
	assert.Empty(t, cart.Load())
}

func TestCart_ConcurrentDispatch(t *testing.T) {
	s := store.New(fake.NewCatalog(), fake.NewCart())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Dispatch(store.AddToCart{ProductID: id % 5})
			s.Dispatch(store.AddToCart{ProductID: id % 5})
			s.Dispatch(store.RemoveFromCart{ProductID: id % 5})
		}(i)
	}
	wg.Wait()
	cart := s.State().Cart
	assert.Equal(t, 50, cart.TotalItems())
	assert.Equal(t, 5, cart.Len())
}

func TestSubscribe_OrderUnsubscribeAndReentrancy(t *testing.T) {
	s := store.New(fake.NewCatalog(), fake.NewCart())
	var calls []string
	unsubA := s.Subscribe(func(st store.State) { calls = append(calls, "a") })
	s.Subscribe(func(st store.State) {
		calls = append(calls, "b")
		// nested dispatch is delivered after the current transition
		if st.Cart.TotalItems() == 1 {
			s.Dispatch(store.AddToCart{ProductID: 1})
		}
	})
	var seen []int
	s.Subscribe(func(st store.State) { seen = append(seen, st.Cart.TotalItems()) })

	s.Dispatch(store.AddToCart{ProductID: 1})
	assert.Equal(t, []string{"a", "b", "a", "b"}, calls)
	assert.Equal(t, []int{1, 2}, seen)

	unsubA()
	unsubA()
	s.Dispatch(store.ClearCart{})
	assert.Equal(t, []string{"a", "b", "a", "b", "b"}, calls)

	// no-op actions notify nobody
	s.Dispatch(store.RemoveFromCart{ProductID: 1})
	assert.Len(t, seen, 3)
}

func TestStoresAreIndependent(t *testing.T) {
	a := store.New(fake.NewCatalog(), fake.NewCart())
	b := store.New(fake.NewCatalog(), fake.NewCart())
	a.Dispatch(store.AddToCart{ProductID: 1})
	assert.Equal(t, 1, a.State().Cart.Len())
	assert.Equal(t, 0, b.State().Cart.Len())
}

func TestLoadProduct(t *testing.T) {
	cat := fake.NewCatalog(model.Product{ID: 1, Name: "a", Price: 10})
	cat.SetDetails(model.ProductDetails{ID: 2, Name: "Towel", Price: 20, Material: "cotton"})
	s := store.New(cat, fake.NewCart())

	s.LoadProduct(2)
	s.LoadProduct(404)
	settle(t, s)

	d, ok := s.State().Detail(2)
	require.True(t, ok)
	assert.Equal(t, store.StatusLoaded, d.Status)
	assert.Equal(t, "cotton", d.Product.Material)

	nf, ok := s.State().Detail(404)
	require.True(t, ok)
	assert.Equal(t, store.StatusNotFound, nf.Status)
	assert.Empty(t, nf.Error)

	// a loaded card provides the cart snapshot
	s.Dispatch(store.AddToCart{ProductID: 2})
	line, _ := s.State().Cart.Line(2)
	assert.Equal(t, 20, line.Price)

	cat.SetError(errors.New("connection reset"))
	s.LoadProduct(1)
	settle(t, s)
	failed, _ := s.State().Detail(1)
	assert.Equal(t, store.StatusFailed, failed.Status)
	assert.Equal(t, "connection reset", failed.Error)
}

func TestCheckout(t *testing.T) {
	form := model.CheckoutForm{Name: " Ann ", Phone: "+7 900 000-00-00", Address: "Main st 1"}

	t.Run("validation", func(t *testing.T) {
		s := store.New(fake.NewCatalog(), fake.NewCart())
		s.Dispatch(store.AddToCart{ProductID: 1})
		bad := []model.CheckoutForm{
			{Phone: form.Phone, Address: form.Address},
			{Name: "Ann", Phone: "12", Address: form.Address},
			{Name: "Ann", Phone: form.Phone, Address: "   "},
		}
		for _, f := range bad {
			_, err := s.Checkout(f)
			var ve *store.ValidationError
			require.ErrorAs(t, err, &ve)
		}
		assert.Equal(t, store.StatusIdle, s.State().Checkout.Status)
	})

	t.Run("empty cart", func(t *testing.T) {
		s := store.New(fake.NewCatalog(), fake.NewCart())
		_, err := s.Checkout(form)
		assert.ErrorIs(t, err, store.ErrEmptyCart)
	})

	t.Run("success clears cart", func(t *testing.T) {
		cart := fake.NewCart()
		s := store.New(fake.NewCatalog(model.Product{ID: 1, Name: "a", Price: 10}), cart)
		s.LoadCatalog()
		settle(t, s)
		s.Dispatch(store.SetQuantity{ProductID: 1, Quantity: 2})

		_, err := s.Checkout(form)
		require.NoError(t, err)
		settle(t, s)

		st := s.State()
		assert.Equal(t, store.StatusLoaded, st.Checkout.Status)
		assert.Equal(t, 1, st.Checkout.LatestOrderID)
		assert.Zero(t, st.Cart.Len())
		assert.Empty(t, cart.Load())
		orders := cart.Orders()
		require.Len(t, orders, 1)
		assert.Equal(t, "Ann", orders[0].Form.Name)
		assert.Equal(t, []model.CartLine{{ProductID: 1, Quantity: 2, Name: "a", Price: 10}}, orders[0].Lines)
	})

	t.Run("failure keeps cart", func(t *testing.T) {
		cart := fake.NewCart()
		cart.SetError(errors.New("checkout rejected"))
		s := store.New(fake.NewCatalog(), cart)
		s.Dispatch(store.AddToCart{ProductID: 1})
		_, err := s.Checkout(form)
		require.NoError(t, err)
		settle(t, s)
		st := s.State()
		assert.Equal(t, store.StatusFailed, st.Checkout.Status)
		assert.Equal(t, "checkout rejected", st.Checkout.Error)
		assert.Equal(t, 1, st.Cart.Len())
	})

	t.Run("stale result discarded", func(t *testing.T) {
		r := &manualRunner{}
		s := store.New(fake.NewCatalog(), fake.NewCart(), store.WithRunner(r))
		s.Dispatch(store.AddToCart{ProductID: 1})
		t1, err := s.Checkout(form)
		require.NoError(t, err)
		t2, err := s.Checkout(form)
		require.NoError(t, err)

		s.Dispatch(store.CheckoutFailure{Token: t1, Err: errors.New("late")})
		assert.Equal(t, store.StatusLoading, s.State().Checkout.Status)
		s.Dispatch(store.CheckoutSuccess{Token: t2, OrderID: 9, Lines: s.State().Cart.Lines()})
		assert.Equal(t, 9, s.State().Checkout.LatestOrderID)
		assert.Zero(t, s.State().Cart.Len())
	})

	t.Run("lines added while in flight survive", func(t *testing.T) {
		r := &manualRunner{}
		cart := fake.NewCart()
		s := store.New(fake.NewCatalog(), cart, store.WithRunner(r))
		s.Dispatch(store.AddToCart{ProductID: 1})
		_, err := s.Checkout(form)
		require.NoError(t, err)

		s.Dispatch(store.AddToCart{ProductID: 1})
		s.Dispatch(store.AddToCart{ProductID: 2})
		r.run(t, 0)

		st := s.State()
		assert.Equal(t, 1, st.Checkout.LatestOrderID)
		assert.Equal(t, []model.CartLine{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 1},
		}, st.Cart.Lines())
		assert.Len(t, cart.Load(), 2)
		require.Len(t, cart.Orders(), 1)
		assert.Equal(t, []model.CartLine{{ProductID: 1, Quantity: 1}}, cart.Orders()[0].Lines)
	})
}

func TestDispatch_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	s := store.New(fake.NewCatalog(), fake.NewCart())
	var panicked bool
	s.Subscribe(func(store.State) {
		if !panicked {
			panicked = true
			panic("listener failed")
		}
	})
	var calls int
	s.Subscribe(func(store.State) { calls++ })

	s.Dispatch(store.AddToCart{ProductID: 1})
	s.Dispatch(store.AddToCart{ProductID: 1})
	s.Dispatch(store.AddToCart{ProductID: 2})

	assert.True(t, panicked)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, s.State().Cart.TotalItems())
}

func TestLoadCatalog_PanickingFetchFailsTheSlice(t *testing.T) {
	newPanicking := func() *fake.Catalog {
		cat := fake.NewCatalog(model.Product{ID: 1, Name: "a", Price: 1})
		cat.Before(func(ctx context.Context, call int) error {
			if call == 1 {
				panic("decoder blew up")
			}
			return nil
		})
		return cat
	}

	t.Run("goroutine runner", func(t *testing.T) {
		s := store.New(newPanicking(), fake.NewCart())
		s.LoadCatalog()
		settle(t, s)
		st := s.State()
		assert.Equal(t, store.StatusFailed, st.Catalog.Status)
		assert.Contains(t, st.Catalog.Err(), "decoder blew up")
	})

	t.Run("queue manager", func(t *testing.T) {
		t.Setenv("WORKER_MIN", "1")
		t.Setenv("WORKER_COUNT", "1")
		mgr := queue.NewManager(config.Load(), queue.New(8))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		mgr.Start(ctx)
		defer mgr.Stop()

		s := store.New(newPanicking(), fake.NewCart(), store.WithRunner(mgr))
		s.LoadCatalog()
		settle(t, s)
		assert.Equal(t, store.StatusFailed, s.State().Catalog.Status)

		// the slice recovers on the next load
		s.LoadCatalog()
		settle(t, s)
		assert.Equal(t, store.StatusLoaded, s.State().Catalog.Status)
	})
}

func TestLoadCatalog_QueuedReloadsCollapse(t *testing.T) {
	q := queue.New(8)
	mgr := queue.NewManager(config.Load(), q)
	cat := fake.NewCatalog(model.Product{ID: 1, Name: "a", Price: 1})
	s := store.New(cat, fake.NewCart(), store.WithRunner(mgr), store.WithSessionID("s1"))
	other := store.New(cat, fake.NewCart(), store.WithRunner(mgr), store.WithSessionID("s2"))

	s.LoadCatalog()
	s.LoadCatalog()
	last := s.LoadCatalog()
	other.LoadCatalog()

	assert.Equal(t, 2, q.BacklogSize())
	assert.Equal(t, uint64(2), q.Superseded())
	assert.Equal(t, 1, s.InFlight())

	// nothing runs until the workers start
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()

	settle(t, s)
	settle(t, other)
	st := s.State()
	assert.Equal(t, store.StatusLoaded, st.Catalog.Status)
	assert.Equal(t, last, st.Catalog.Token)
	assert.Equal(t, 2, cat.Calls())
}
