package domain

const (
	EventProductChanged = "product.changed"
	EventOrderUpdated   = "order.updated"

	ActionUpdate = "update"
)

// ProductChanged is emitted after every stock-affecting operation.
type ProductChanged struct {
	Action  string          `json:"action"`
	Product ProductSnapshot `json:"product"`
}

// ProductSnapshot is the product view carried in change events. Stock is nil
// when the current value could not be read back.
type ProductSnapshot struct {
	ID    string `json:"id"`
	Slug  string `json:"slug,omitempty"`
	Name  string `json:"name,omitempty"`
	Stock *int   `json:"stock,omitempty"`
}

type OrderUpdated struct {
	ID            string        `json:"id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

func NewProductChanged(p Product) ProductChanged {
	stock := p.Stock
	return ProductChanged{
		Action: ActionUpdate,
		Product: ProductSnapshot{
			ID:    p.ID,
			Slug:  p.Slug,
			Name:  p.Name,
			Stock: &stock,
		},
	}
}
