package app

import (
	"context"
	"errors"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

const maxListLimit = 100

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.deps.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "find order", Err: err}
	}
	return order, nil
}

// ListOrders returns orders newest first, capped at 100.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	orders, err := s.deps.Orders.List(ctx, filter)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list orders", Err: err}
	}
	return orders, nil
}

// CancelOrder cancels a pending order and returns its stock. Orders in any
// other status are returned unchanged.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	updated, changed, err := s.transition(ctx, id, domain.StatusCancelled, nil)
	if err != nil || !changed {
		return updated, err
	}

	s.restock(ctx, updated)
	s.announceStock(ctx, productIDs(updated.Items))
	s.announceOrder(ctx, updated)
	s.logger.InfoContext(ctx, "order cancelled", "order_id", id)
	return updated, nil
}

// ConfirmPayment settles a pending order. Gateway-backed orders are treated
// as confirmed by the client; other methods follow approved. A declined
// payment fails the order and returns its stock. The bool reports whether
// the order ended up paid.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string, approved bool) (*domain.Order, bool, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ConfirmPayment")
	defer span.End()

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status != domain.StatusPending {
		return current, current.Status == domain.StatusPaid, domain.ErrStatusConflict
	}

	paid := approved || (current.Payment.Method.RequiresGateway() && s.gatewayEnabled())
	next, payment := domain.StatusFailed, domain.PaymentFailed
	if paid {
		next, payment = domain.StatusPaid, domain.PaymentSucceeded
	}

	updated, changed, err := s.transition(ctx, id, next, &payment)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return updated, updated.Status == domain.StatusPaid, domain.ErrStatusConflict
	}

	if !paid {
		s.restock(ctx, updated)
		s.announceStock(ctx, productIDs(updated.Items))
	}
	s.announceOrder(ctx, updated)
	s.logger.InfoContext(ctx, "payment settled", "order_id", id, "status", updated.Status)
	return updated, paid, nil
}

// transition moves a pending order to next with a conditional update, so
// concurrent cancel/pay calls cannot both win. changed is false when the
// order was no longer pending; the current order is returned then.
func (s *OrderService) transition(ctx context.Context, id string, next domain.OrderStatus, payment *domain.PaymentStatus) (*domain.Order, bool, error) {
	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !current.Status.CanTransitionTo(next) {
		return current, false, nil
	}

	expect := domain.StatusPending
	updated, err := s.deps.Orders.Update(ctx, id, domain.OrderPatch{
		ExpectStatus:  &expect,
		Status:        &next,
		PaymentStatus: payment,
	})
	switch {
	case errors.Is(err, domain.ErrStatusConflict):
		latest, err := s.GetOrder(ctx, id)
		return latest, false, err
	case err != nil:
		return nil, false, &domain.PersistenceError{Op: "update order status", Err: err}
	}
	return updated, true, nil
}

// restock returns every item of order to the inventory. Failures are
// logged; the status change already happened and is not undone.
func (s *OrderService) restock(ctx context.Context, order *domain.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range order.Reservations() {
		if err := s.deps.Inventory.Restock(ctx, it.ProductID, it.Quantity); err != nil {
			telemetry.StockCompensations.WithLabelValues("failed").Inc()
			s.logger.ErrorContext(ctx, "CRITICAL: failed to restock order item",
				"order_id", order.ID, "product_id", it.ProductID, "qty", it.Quantity, "error", err)
			continue
		}
		telemetry.StockCompensations.WithLabelValues("ok").Inc()
	}
}
