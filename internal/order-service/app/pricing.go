package app

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

// Pricing holds the shipping and tax policy applied on top of the subtotal.
// The zero value charges neither.
type Pricing struct {
	Shipping decimal.Decimal
	TaxRate  decimal.Decimal
}

// snapshotItems prices every requested line from the current catalog price.
func snapshotItems(items []OrderItemInput, products map[string]domain.Product) []domain.OrderItem {
	out := make([]domain.OrderItem, len(items))
	for i, it := range items {
		p := products[it.ProductID]
		out[i] = domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Qty,
			UnitPrice: domain.RoundMoney(p.Price),
			LineTotal: domain.LineTotal(p.Price, it.Qty),
		}
	}
	return out
}

// Amounts derives subtotal, shipping, tax and total. Total is always the sum
// of the other three.
func (p Pricing) Amounts(items []domain.OrderItem) domain.Amounts {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	shipping := domain.RoundMoney(p.Shipping)
	tax := domain.RoundMoney(subtotal.Mul(p.TaxRate))

	return domain.Amounts{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
