package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

// --- ReserveStockStep ---

type ReserveStockStep struct {
	inventory ports.InventoryStore
	item      domain.StockItem
}

func NewReserveStockStep(inventory ports.InventoryStore, item domain.StockItem) *ReserveStockStep {
	return &ReserveStockStep{inventory: inventory, item: item}
}

func (s *ReserveStockStep) Name() string { return "Reserve_Stock_" + s.item.ProductID }

// Execute returns the store error untouched so *domain.OutOfStockError
// reaches the caller.
func (s *ReserveStockStep) Execute(ctx context.Context) error {
	return s.inventory.Reserve(ctx, s.item.ProductID, s.item.Quantity)
}

func (s *ReserveStockStep) Compensate(ctx context.Context) error {
	if err := s.inventory.Restock(ctx, s.item.ProductID, s.item.Quantity); err != nil {
		return fmt.Errorf("restock %d of %s: %w", s.item.Quantity, s.item.ProductID, err)
	}
	return nil
}

// ReservationSteps builds one reservation step per item, preserving order.
func ReservationSteps(inventory ports.InventoryStore, items []domain.StockItem) []Step {
	steps := make([]Step, len(items))
	for i, it := range items {
		steps[i] = NewReserveStockStep(inventory, it)
	}
	return steps
}

// --- PersistOrderStep ---

type PersistOrderStep struct {
	orders ports.OrderRepository
	order  *domain.Order
}

func NewPersistOrderStep(orders ports.OrderRepository, order *domain.Order) *PersistOrderStep {
	return &PersistOrderStep{orders: orders, order: order}
}

func (s *PersistOrderStep) Name() string { return "Persist_Order_Step" }

func (s *PersistOrderStep) Execute(ctx context.Context) error {
	if err := s.orders.Create(ctx, s.order); err != nil {
		return &domain.PersistenceError{Op: "create order", Err: err}
	}
	return nil
}

func (s *PersistOrderStep) Compensate(ctx context.Context) error {
	// Last step: nothing runs after it that could fail.
	return nil
}
