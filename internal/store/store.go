// Package store holds the session cart: line items, derived totals and the
// write-through persistence of every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"golang.org/x/text/currency"
)

const DefaultKey = "cart"

type Store struct {
	mu    sync.Mutex
	items []domain.LineItem

	storage  port.Storage
	notifier port.Notifier
	key      string
	currency currency.Unit
	logger   *slog.Logger
}

type Option func(*Store)

// WithKey sets the storage key the snapshot is kept under.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New rehydrates the cart from storage. A missing or corrupt snapshot yields
// an empty cart; only a failing read is returned as an error.
func New(ctx context.Context, storage port.Storage, notifier port.Notifier, opts ...Option) (*Store, error) {
	if storage == nil {
		return nil, errors.New("storage is nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier is nil")
	}

	s := &Store{
		storage:  storage,
		notifier: notifier,
		key:      DefaultKey,
		currency: currency.USD,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.key == "" {
		return nil, errors.New("key is empty")
	}

	value, err := storage.Get(ctx, s.key)
	if errors.Is(err, port.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Get: %w", err)
	}

	items, err := s.restore(value)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt cart snapshot",
			slog.String("key", s.key), slog.Any("error", err))
		return s, nil
	}

	s.items = items

	return s, nil
}

func (s *Store) restore(value string) ([]domain.LineItem, error) {
	items, err := decodeItems(value)
	if err != nil {
		return nil, fmt.Errorf("decodeItems: %w", err)
	}

	for _, item := range items {
		if item.UnitPrice.Currency != s.currency {
			return nil, fmt.Errorf("line key[%s] currency[%s] differs from cart currency[%s]",
				item.Key, item.UnitPrice.Currency, s.currency)
		}
	}

	return items, nil
}

// Add merges quantity into the line with the same product and variant or
// appends a new line snapshotting the product name and price.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int, variant domain.Variant) (domain.LineItem, error) {
	if err := product.Validate(); err != nil {
		return domain.LineItem{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	if quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("%w: %d is not positive", ErrInvalidQuantity, quantity)
	}
	if product.Price.Currency != s.currency {
		return domain.LineItem{}, fmt.Errorf("%w: product[%s] cart[%s]", ErrCurrencyMismatch, product.Price.Currency, s.currency)
	}

	key := domain.NewLineKey(product.ID, variant)

	s.mu.Lock()

	var (
		result domain.LineItem
		n      port.Notification
	)

	if idx := s.indexOf(key); idx >= 0 {
		existing := s.items[idx].Quantity
		if quantity > math.MaxInt-existing {
			s.mu.Unlock()
			return domain.LineItem{}, fmt.Errorf("%w: %d added to %d overflows", ErrInvalidQuantity, quantity, existing)
		}

		s.items[idx].Quantity += quantity
		result = s.items[idx]
		n = port.Notification{
			Kind:    port.KindQuantityUpdated,
			Message: fmt.Sprintf("Updated %s quantity in cart!", product.Name),
			Key:     key.String(),
		}
	} else {
		result = domain.LineItem{
			Key:       key,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
		}
		s.items = append(s.items, result)
		n = port.Notification{
			Kind:    port.KindItemAdded,
			Message: fmt.Sprintf("Added %s to cart!", product.Name),
			Key:     key.String(),
		}
	}

	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Notify(ctx, n)

	return result, err
}

// Remove is a no-op for an unknown key.
func (s *Store) Remove(ctx context.Context, key domain.LineKey) error {
	s.mu.Lock()

	idx := s.indexOf(key)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	removed := s.items[idx]
	s.items = slices.Delete(s.items, idx, idx+1)

	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Notify(ctx, port.Notification{
		Kind:    port.KindItemRemoved,
		Message: fmt.Sprintf("Removed %s from cart!", removed.Name),
		Key:     key.String(),
	})

	return err
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, key domain.LineKey, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	if idx < 0 {
		return nil
	}

	s.items[idx].Quantity = quantity

	return s.persistLocked(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Notify(ctx, port.Notification{
		Kind:    port.KindCartCleared,
		Message: "Cart cleared!",
	})

	return err
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items)
}

func (s *Store) Item(key domain.LineKey) (domain.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	if idx < 0 {
		return domain.LineItem{}, false
	}
	return s.items[idx], true
}

func (s *Store) Currency() currency.Unit {
	return s.currency
}

func (s *Store) Subtotal() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Subtotal(s.currency, s.items)
}

func (s *Store) Tax(subtotal domain.Money) domain.Money {
	return domain.Tax(subtotal)
}

func (s *Store) Shipping(subtotal domain.Money) domain.Money {
	return domain.Shipping(subtotal)
}

func (s *Store) ItemCount() int {
	return s.Totals().ItemCount
}

func (s *Store) OrderTotal() domain.Money {
	return s.Totals().Total
}

// Totals is recomputed from the current items on every call.
func (s *Store) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.ComputeTotals(s.currency, s.items)
}

func (s *Store) indexOf(key domain.LineKey) int {
	return slices.IndexFunc(s.items, func(item domain.LineItem) bool {
		return item.Key == key
	})
}

// persistLocked overwrites the stored snapshot with the full collection.
// Caller must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	value, err := encodeItems(s.items)
	if err != nil {
		return s.persistFailed(ctx, fmt.Errorf("encodeItems: %w", err))
	}

	if err := s.storage.Set(ctx, s.key, value); err != nil {
		return s.persistFailed(ctx, fmt.Errorf("storage.Set: %w", err))
	}

	return nil
}

func (s *Store) persistFailed(ctx context.Context, err error) error {
	s.logger.ErrorContext(ctx, "cart snapshot not persisted",
		slog.String("key", s.key), slog.Any("error", err))

	return fmt.Errorf("%w: %w", ErrPersist, err)
}
