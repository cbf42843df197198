package httpx

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-orders/internal/order-service/app"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

type CreateOrderRequest struct {
	Items         []CreateOrderItemDTO `json:"items"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
	User          *UserDTO             `json:"user,omitempty"`
}

type CreateOrderItemDTO struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type UserDTO struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type PayRequest struct {
	Approved bool `json:"approved"`
}

type CreateOrderResponse struct {
	Order        OrderResponse `json:"order"`
	ClientSecret string        `json:"clientSecret,omitempty"`
}

type TransitionResponse struct {
	OK    bool          `json:"ok"`
	Order OrderResponse `json:"order"`
}

type OrderResponse struct {
	ID             string              `json:"id"`
	Items          []OrderItemResponse `json:"items"`
	Amounts        AmountsResponse     `json:"amounts"`
	Payment        PaymentResponse     `json:"payment"`
	Status         string              `json:"status"`
	User           *UserDTO            `json:"user,omitempty"`
	IdempotencyKey string              `json:"idempotencyKey,omitempty"`
	CreatedAt      string              `json:"createdAt"`
	UpdatedAt      string              `json:"updatedAt"`
}

type OrderItemResponse struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Qty       int         `json:"qty"`
	UnitPrice json.Number `json:"unitPrice"`
	LineTotal json.Number `json:"lineTotal"`
}

type AmountsResponse struct {
	Subtotal json.Number `json:"subtotal"`
	Shipping json.Number `json:"shipping"`
	Tax      json.Number `json:"tax"`
	Total    json.Number `json:"total"`
}

type PaymentResponse struct {
	Method     string `json:"method"`
	ProviderID string `json:"providerId,omitempty"`
	Status     string `json:"status"`
}

type ErrorResponse struct {
	Error     string              `json:"error"`
	Message   string              `json:"message,omitempty"`
	ProductID string              `json:"productId,omitempty"`
	Available *int                `json:"available,omitempty"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
}

func (r CreateOrderRequest) toInput(idempotencyKey string) app.CreateOrderInput {
	in := app.CreateOrderInput{
		Items:          make([]app.OrderItemInput, len(r.Items)),
		PaymentMethod:  domain.PaymentMethod(r.PaymentMethod),
		IdempotencyKey: idempotencyKey,
	}
	for i, it := range r.Items {
		in.Items[i] = app.OrderItemInput{ProductID: it.ProductID, Qty: it.Qty}
	}
	if r.User != nil {
		in.User = &domain.Customer{Email: r.User.Email, Name: r.User.Name}
	}
	return in
}

// money renders an amount as a JSON number with exactly two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(domain.MoneyPlaces))
}

func mapOrderToResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:    order.ID,
		Items: make([]OrderItemResponse, len(order.Items)),
		Amounts: AmountsResponse{
			Subtotal: money(order.Amounts.Subtotal),
			Shipping: money(order.Amounts.Shipping),
			Tax:      money(order.Amounts.Tax),
			Total:    money(order.Amounts.Total),
		},
		Payment: PaymentResponse{
			Method:     string(order.Payment.Method),
			ProviderID: order.Payment.ProviderID,
			Status:     string(order.Payment.Status),
		},
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for i, it := range order.Items {
		resp.Items[i] = OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Quantity,
			UnitPrice: money(it.UnitPrice),
			LineTotal: money(it.LineTotal),
		}
	}
	if order.User != nil {
		resp.User = &UserDTO{Email: order.User.Email, Name: order.User.Name}
	}
	if order.Idempotency != nil {
		resp.IdempotencyKey = order.Idempotency.Key
	}
	return resp
}

func mapOrdersToResponse(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	return out
}
