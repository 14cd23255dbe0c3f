package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/nikolayk812/cartstore/internal/repository"
	"github.com/nikolayk812/cartstore/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []port.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n port.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) kinds() []port.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]port.Kind, 0, len(r.items))
	for _, n := range r.items {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// flakyStorage wraps a storage and fails writes while failSet is true.
type flakyStorage struct {
	port.Storage
	failSet bool
	getErr  error
	sets    int
}

func (f *flakyStorage) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Storage.Get(ctx, key)
}

func (f *flakyStorage) Set(ctx context.Context, key, value string) error {
	f.sets++
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.Storage.Set(ctx, key, value)
}

func newStore(t *testing.T, storage port.Storage) (*store.Store, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	s, err := store.New(t.Context(), storage, notifier)
	require.NoError(t, err)

	return s, notifier
}

func product(id string, price string) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: domain.NewMoney(decimal.RequireFromString(price), currency.USD),
	}
}

func randomProduct() domain.Product {
	return domain.Product{
		ID:    gofakeit.UUID(),
		Name:  gofakeit.ProductName(),
		Price: domain.NewMoney(decimal.NewFromFloat(gofakeit.Price(1, 100)), currency.USD),
	}
}

var cmpOpts = cmp.Options{
	cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	}),
	cmp.Comparer(func(x, y currency.Unit) bool {
		return x.String() == y.String()
	}),
}

func assertMoney(t *testing.T, want string, got domain.Money) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got.Amount), "want %s, got %s", want, got.Amount)
}

func TestAdd_Scenario(t *testing.T) {
	ctx := t.Context()
	s, notifier := newStore(t, repository.NewMemory())

	p1 := product("P1", "50")
	m := domain.Variant{Size: "M"}

	item, err := s.Add(ctx, p1, 1, m)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	assertMoney(t, "50", s.Subtotal())
	assertMoney(t, "4.00", s.Tax(s.Subtotal()))
	assertMoney(t, "10", s.Shipping(s.Subtotal()))
	assertMoney(t, "64.00", s.OrderTotal())

	item, err = s.Add(ctx, p1, 1, m)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	require.Len(t, s.Items(), 1)
	assert.Equal(t, 2, s.ItemCount())
	assertMoney(t, "100", s.Subtotal())
	assertMoney(t, "8.00", s.Tax(s.Subtotal()))
	assertMoney(t, "0", s.Shipping(s.Subtotal()))
	assertMoney(t, "108.00", s.OrderTotal())

	assert.Equal(t, []port.Kind{port.KindItemAdded, port.KindQuantityUpdated}, notifier.kinds())
	assert.Equal(t, "P1-M-null", notifier.items[1].Key)
	assert.Equal(t, "Updated "+p1.Name+" quantity in cart!", notifier.items[1].Message)
}

func TestAdd_SameKeyMerges(t *testing.T) {
	ctx := t.Context()
	s, _ := newStore(t, repository.NewMemory())

	p := randomProduct()
	v := domain.Variant{Size: gofakeit.RandomString([]string{"S", "M", "L"}), Color: gofakeit.Color()}

	want := 0
	for range gofakeit.Number(2, 10) {
		qty := gofakeit.Number(1, 5)
		want += qty

		_, err := s.Add(ctx, p, qty, v)
		require.NoError(t, err)
	}

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, want, items[0].Quantity)
	assert.Equal(t, domain.NewLineKey(p.ID, v), items[0].Key)
}

func TestAdd_DistinctKeys(t *testing.T) {
	ctx := t.Context()
	s, _ := newStore(t, repository.NewMemory())

	p := product("P1", "10")
	variants := []domain.Variant{
		{},
		{Size: "M"},
		{Color: "red"},
		{Size: "M", Color: "red"},
		{Size: "L", Color: "red"},
	}

	for _, v := range variants {
		_, err := s.Add(ctx, p, 1, v)
		require.NoError(t, err)
	}
	_, err := s.Add(ctx, product("P2", "10"), 1, domain.Variant{})
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, len(variants)+1)

	// insertion order is kept
	for i, v := range variants {
		assert.Equal(t, domain.NewLineKey("P1", v), items[i].Key)
	}
	assert.Equal(t, "P2", items[len(items)-1].Key.ProductID)
}

func TestAdd_SnapshotsProduct(t *testing.T) {
	ctx := t.Context()
	s, _ := newStore(t, repository.NewMemory())

	p := product("P1", "20")
	_, err := s.Add(ctx, p, 1, domain.Variant{})
	require.NoError(t, err)

	// a later price change upstream does not touch the existing line
	repriced := p
	repriced.Price = domain.NewMoney(decimal.NewFromInt(99), currency.USD)
	repriced.Name = "Renamed"

	_, err = s.Add(ctx, repriced, 1, domain.Variant{})
	require.NoError(t, err)

	item, ok := s.Item(domain.LineKey{ProductID: "P1"})
	require.True(t, ok)
	assert.Equal(t, p.Name, item.Name)
	assertMoney(t, "20", item.UnitPrice)
	assert.Equal(t, 2, item.Quantity)
}

func TestAdd_Preconditions(t *testing.T) {
	tests := []struct {
		name     string
		product  domain.Product
		existing int
		quantity int
		wantErr  error
	}{
		{
			name:     "empty product ID",
			product:  domain.Product{Name: "x", Price: domain.Zero(currency.USD)},
			quantity: 1,
			wantErr:  store.ErrInvalidProduct,
		},
		{
			name:     "empty name",
			product:  domain.Product{ID: "P1", Price: domain.Zero(currency.USD)},
			quantity: 1,
			wantErr:  store.ErrInvalidProduct,
		},
		{
			name:     "negative price",
			product:  product("P1", "-5"),
			quantity: 1,
			wantErr:  store.ErrInvalidProduct,
		},
		{
			name:     "zero quantity",
			product:  product("P1", "5"),
			quantity: 0,
			wantErr:  store.ErrInvalidQuantity,
		},
		{
			name:     "negative quantity",
			product:  product("P1", "5"),
			quantity: -3,
			wantErr:  store.ErrInvalidQuantity,
		},
		{
			name: "foreign currency",
			product: domain.Product{
				ID:    "P1",
				Name:  "x",
				Price: domain.NewMoney(decimal.NewFromInt(5), currency.EUR),
			},
			quantity: 1,
			wantErr:  store.ErrCurrencyMismatch,
		},
		{
			name:     "merged quantity overflows",
			product:  product("P1", "5"),
			existing: math.MaxInt,
			quantity: 1,
			wantErr:  store.ErrInvalidQuantity,
		},
		{
			name:     "merged quantity overflows from below",
			product:  product("P1", "5"),
			existing: 2,
			quantity: math.MaxInt - 1,
			wantErr:  store.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &flakyStorage{Storage: repository.NewMemory()}
			s, notifier := newStore(t, storage)

			if tt.existing > 0 {
				_, err := s.Add(t.Context(), tt.product, tt.existing, domain.Variant{})
				require.NoError(t, err)
			}
			before := s.Items()
			setsBefore := storage.sets
			kindsBefore := notifier.kinds()

			_, err := s.Add(t.Context(), tt.product, tt.quantity, domain.Variant{})
			require.ErrorIs(t, err, tt.wantErr)

			if diff := cmp.Diff(before, s.Items(), cmpOpts); diff != "" {
				t.Errorf("items changed (-before +after):\n%s", diff)
			}
			assert.Equal(t, setsBefore, storage.sets)
			assert.Equal(t, kindsBefore, notifier.kinds())
			assert.GreaterOrEqual(t, s.ItemCount(), 0)
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := t.Context()
	s, notifier := newStore(t, repository.NewMemory())

	p1, p2 := product("P1", "10"), product("P2", "20")
	_, err := s.Add(ctx, p1, 1, domain.Variant{})
	require.NoError(t, err)
	_, err = s.Add(ctx, p2, 1, domain.Variant{Size: "M"})
	require.NoError(t, err)

	err = s.Remove(ctx, domain.LineKey{ProductID: "P1"})
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "P2", items[0].Key.ProductID)

	last := notifier.items[len(notifier.items)-1]
	assert.Equal(t, port.KindItemRemoved, last.Kind)
	assert.Equal(t, "Removed "+p1.Name+" from cart!", last.Message)
}

func TestRemove_UnknownKeyIsNoop(t *testing.T) {
	storage := &flakyStorage{Storage: repository.NewMemory()}
	s, notifier := newStore(t, storage)

	err := s.Remove(t.Context(), domain.LineKey{ProductID: "missing"})
	require.NoError(t, err)

	assert.Zero(t, storage.sets)
	assert.Empty(t, notifier.kinds())
}

func TestUpdateQuantity(t *testing.T) {
	ctx := t.Context()
	s, notifier := newStore(t, repository.NewMemory())

	key := domain.LineKey{ProductID: "P1", Size: "M"}
	_, err := s.Add(ctx, product("P1", "10"), 3, key.Variant())
	require.NoError(t, err)

	err = s.UpdateQuantity(ctx, key, 7)
	require.NoError(t, err)

	item, ok := s.Item(key)
	require.True(t, ok)
	assert.Equal(t, 7, item.Quantity)

	err = s.UpdateQuantity(ctx, domain.LineKey{ProductID: "missing"}, 2)
	require.NoError(t, err)
	assert.Len(t, s.Items(), 1)

	// only the add notified
	assert.Equal(t, []port.Kind{port.KindItemAdded}, notifier.kinds())
}

func TestUpdateQuantity_ZeroEqualsRemove(t *testing.T) {
	setup := func(t *testing.T) *store.Store {
		s, _ := newStore(t, repository.NewMemory())
		for _, id := range []string{"A", "B", "C"} {
			_, err := s.Add(t.Context(), product(id, "5"), 2, domain.Variant{Color: "red"})
			require.NoError(t, err)
		}
		return s
	}

	key := domain.LineKey{ProductID: "B", Color: "red"}

	removed := setup(t)
	require.NoError(t, removed.Remove(t.Context(), key))

	for _, qty := range []int{0, -1} {
		updated := setup(t)
		require.NoError(t, updated.UpdateQuantity(t.Context(), key, qty))

		if diff := cmp.Diff(removed.Items(), updated.Items(), cmpOpts); diff != "" {
			t.Errorf("qty %d: items mismatch (-remove +update):\n%s", qty, diff)
		}
	}
}

func TestUpdateQuantity_ToZeroEmptiesCart(t *testing.T) {
	ctx := t.Context()
	s, _ := newStore(t, repository.NewMemory())

	v := domain.Variant{Color: "red"}
	_, err := s.Add(ctx, product("P2", "30"), 1, v)
	require.NoError(t, err)

	require.NoError(t, s.UpdateQuantity(ctx, domain.NewLineKey("P2", v), 0))

	assert.Empty(t, s.Items())
	assert.Zero(t, s.ItemCount())
}

func TestClear_Idempotent(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemory()
	s, notifier := newStore(t, storage)

	_, err := s.Add(ctx, randomProduct(), 2, domain.Variant{})
	require.NoError(t, err)

	for range 2 {
		require.NoError(t, s.Clear(ctx))
		assert.Empty(t, s.Items())
		assert.True(t, s.Subtotal().IsZero())
	}

	value, err := storage.Get(ctx, store.DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, value)

	assert.Equal(t, []port.Kind{port.KindItemAdded, port.KindCartCleared, port.KindCartCleared}, notifier.kinds())
}

func TestOrderTotal_MatchesDirectComputation(t *testing.T) {
	ctx := t.Context()
	s, _ := newStore(t, repository.NewMemory())

	for range gofakeit.Number(1, 8) {
		_, err := s.Add(ctx, randomProduct(), gofakeit.Number(1, 4), domain.Variant{})
		require.NoError(t, err)

		subtotal := decimal.Zero
		for _, item := range s.Items() {
			subtotal = subtotal.Add(item.UnitPrice.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		shipping := decimal.NewFromInt(10)
		if subtotal.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			shipping = decimal.Zero
		}
		want := subtotal.Add(subtotal.Mul(decimal.RequireFromString("0.08"))).Add(shipping)

		assert.True(t, want.Equal(s.OrderTotal().Amount), "want %s, got %s", want, s.OrderTotal().Amount)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemory()
	s, _ := newStore(t, storage)

	for range 5 {
		v := domain.Variant{Size: gofakeit.RandomString([]string{"", "S", "M"}), Color: gofakeit.RandomString([]string{"", "red"})}
		_, err := s.Add(ctx, randomProduct(), gofakeit.Number(1, 3), v)
		require.NoError(t, err)
	}

	restored, _ := newStore(t, storage)

	diff := cmp.Diff(s.Items(), restored.Items(), cmpOpts)
	assert.Empty(t, diff)
	assert.True(t, s.OrderTotal().Equal(restored.OrderTotal()))
}

func TestPersistence_SnapshotFormat(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemory()
	s, _ := newStore(t, storage)

	_, err := s.Add(ctx, domain.Product{
		ID:    "P1",
		Name:  "Ultraboost",
		Price: domain.NewMoney(decimal.RequireFromString("50.5"), currency.USD),
	}, 2, domain.Variant{Size: "M"})
	require.NoError(t, err)

	value, err := storage.Get(ctx, store.DefaultKey)
	require.NoError(t, err)

	assert.JSONEq(t, `[{
		"line_key": "P1-M-null",
		"product_id": "P1",
		"name": "Ultraboost",
		"unit_price": "50.5",
		"currency": "USD",
		"quantity": 2,
		"size": "M",
		"color": null
	}]`, value)
}

func TestNew_CorruptSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "{{{"},
		{name: "truncated", value: `[{"product_id":"P1","quan`},
		{name: "wrong shape", value: `{"items":[]}`},
		{name: "zero quantity", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","unit_price":"1","currency":"USD","quantity":0}]`},
		{name: "empty product", value: `[{"line_key":"-null-null","product_id":"","name":"x","unit_price":"1","currency":"USD","quantity":1}]`},
		{name: "empty name", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"","unit_price":"1","currency":"USD","quantity":1}]`},
		{name: "negative price", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","unit_price":"-500","currency":"USD","quantity":1}]`},
		{name: "missing price", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","currency":"USD","quantity":3}]`},
		{name: "null price", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","unit_price":null,"currency":"USD","quantity":3}]`},
		{name: "bad currency", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","unit_price":"1","currency":"XX","quantity":1}]`},
		{name: "foreign currency", value: `[{"line_key":"P1-null-null","product_id":"P1","name":"x","unit_price":"1","currency":"EUR","quantity":1}]`},
		{name: "line key mismatch", value: `[{"line_key":"P2-M-null","product_id":"P1","name":"x","unit_price":"1","currency":"USD","quantity":1}]`},
		{name: "missing line key", value: `[{"product_id":"P1","name":"x","unit_price":"1","currency":"USD","quantity":1}]`},
		{name: "duplicate key", value: `[
			{"line_key":"P1-M-null","product_id":"P1","name":"x","unit_price":"1","currency":"USD","quantity":1,"size":"M"},
			{"line_key":"P1-M-null","product_id":"P1","name":"x","unit_price":"1","currency":"USD","quantity":2,"size":"M"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			storage := repository.NewMemory()
			require.NoError(t, storage.Set(ctx, store.DefaultKey, tt.value))

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			s, err := store.New(ctx, storage, &recordingNotifier{}, store.WithLogger(logger))
			require.NoError(t, err)

			assert.Empty(t, s.Items())
			assert.Contains(t, logs.String(), "discarding corrupt cart snapshot")
		})
	}
}

func TestNew_StorageReadFailure(t *testing.T) {
	storage := &flakyStorage{Storage: repository.NewMemory(), getErr: errors.New("connection refused")}

	_, err := store.New(t.Context(), storage, &recordingNotifier{})
	require.EqualError(t, err, "storage.Get: connection refused")
}

func TestNew_Options(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemory()

	s, err := store.New(ctx, storage, &recordingNotifier{},
		store.WithKey("session-42"), store.WithCurrency(currency.EUR))
	require.NoError(t, err)
	assert.Equal(t, currency.EUR, s.Currency())

	_, err = s.Add(ctx, domain.Product{
		ID:    "P1",
		Name:  "x",
		Price: domain.NewMoney(decimal.NewFromInt(3), currency.EUR),
	}, 1, domain.Variant{})
	require.NoError(t, err)

	_, err = storage.Get(ctx, "session-42")
	require.NoError(t, err)
	_, err = storage.Get(ctx, store.DefaultKey)
	require.ErrorIs(t, err, port.ErrNotFound)

	_, err = store.New(ctx, storage, &recordingNotifier{}, store.WithKey(""))
	require.EqualError(t, err, "key is empty")
}

func TestPersistFailure_IsReportedAndHeals(t *testing.T) {
	ctx := t.Context()
	storage := &flakyStorage{Storage: repository.NewMemory()}
	notifier := &recordingNotifier{}

	var logs bytes.Buffer
	s, err := store.New(ctx, storage, notifier, store.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	storage.failSet = true

	item, err := s.Add(ctx, product("P1", "10"), 2, domain.Variant{})
	require.ErrorIs(t, err, store.ErrPersist)
	assert.Equal(t, 2, item.Quantity)
	assert.Len(t, s.Items(), 1, "mutation stays applied in memory")
	assert.Contains(t, logs.String(), "cart snapshot not persisted")
	assert.Equal(t, []port.Kind{port.KindItemAdded}, notifier.kinds())

	_, err = storage.Get(ctx, store.DefaultKey)
	require.ErrorIs(t, err, port.ErrNotFound)

	storage.failSet = false

	require.NoError(t, s.UpdateQuantity(ctx, domain.LineKey{ProductID: "P1"}, 5))

	restored, _ := newStore(t, storage)
	items := restored.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestNew_NilCollaborators(t *testing.T) {
	_, err := store.New(t.Context(), nil, &recordingNotifier{})
	require.EqualError(t, err, "storage is nil")

	_, err = store.New(t.Context(), repository.NewMemory(), nil)
	require.EqualError(t, err, "notifier is nil")
}
