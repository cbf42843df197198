// Package memory is an in-process implementation of the order service
// storage ports. It backs STORE=memory deployments and the service tests.
//
// Transactions are emulated with an undo journal: writes made inside
// WithinTransaction are rolled back if fn fails. They are atomic on failure
// but not isolated; concurrent readers can observe uncommitted stock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var (
	_ ports.InventoryStore  = (*Store)(nil)
	_ ports.OrderRepository = (*Store)(nil)
	_ ports.Transactor      = (*Store)(nil)
)

const defaultListLimit = 100

type Store struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	seq      map[string]int
	next     int

	now             func() time.Time
	txUnsupported   bool
	failNextRestock error
}

type Option func(*Store)

// WithoutTransactions makes WithinTransaction report
// domain.ErrTransactionsUnsupported, like a standalone Mongo server.
func WithoutTransactions() Option {
	return func(s *Store) { s.txUnsupported = true }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		products: make(map[string]*domain.Product),
		orders:   make(map[string]*domain.Order),
		seq:      make(map[string]int),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutProduct inserts or replaces a product, assigning an ID when empty.
func (s *Store) PutProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = &p
	return p
}

func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, false
	}
	return *p, true
}

func (s *Store) SetPrice(id string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	p.Price = price
	p.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// FailNextRestock makes the next Restock call return err without touching
// stock.
func (s *Store) FailNextRestock(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextRestock = err
}

func (s *Store) Reserve(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return &domain.OutOfStockError{ProductID: productID, Available: 0}
	}
	if p.Stock < qty {
		return &domain.OutOfStockError{ProductID: productID, Available: p.Stock}
	}
	p.Stock -= qty
	p.UpdatedAt = s.now().UTC()
	journalFrom(ctx).add(func() { p.Stock += qty })
	return nil
}

func (s *Store) Restock(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNextRestock; err != nil {
		s.failNextRestock = nil
		return err
	}
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("restock %s: %w", productID, domain.ErrNotFound)
	}
	p.Stock += qty
	p.UpdatedAt = s.now().UTC()
	journalFrom(ctx).add(func() { p.Stock -= qty })
	return nil
}

func (s *Store) FindProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) NextID() string {
	return uuid.NewString()
}

func (s *Store) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	now := s.now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	id := order.ID
	s.orders[id] = order.Clone()
	s.next++
	s.seq[id] = s.next
	journalFrom(ctx).add(func() {
		delete(s.orders, id)
		delete(s.seq, id)
	})
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if patch.ExpectStatus != nil && o.Status != *patch.ExpectStatus {
		return nil, fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrStatusConflict)
	}

	before := o.Clone()
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		o.Payment.Status = *patch.PaymentStatus
	}
	if patch.ProviderID != nil {
		o.Payment.ProviderID = *patch.ProviderID
	}
	o.UpdatedAt = s.now().UTC()
	journalFrom(ctx).add(func() { s.orders[id] = before })
	return o.Clone(), nil
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string, since time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.Order
	for _, o := range s.orders {
		m := o.Idempotency
		if m == nil || m.Key != key || m.CreatedAt.Before(since) {
			continue
		}
		if found == nil || m.CreatedAt.After(found.Idempotency.CreatedAt) {
			found = o
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found.Clone(), nil
}

func (s *Store) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if filter.Email != "" && (o.User == nil || o.User.Email != filter.Email) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})

	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txUnsupported {
		return domain.ErrTransactionsUnsupported
	}
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		j.rollback()
		s.mu.Unlock()
		return err
	}
	return nil
}

type journalKey struct{}

// journal collects undo actions. It is only touched while Store.mu is held.
type journal struct {
	undo []func()
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

func (j *journal) add(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
