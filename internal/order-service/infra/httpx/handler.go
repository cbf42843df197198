package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront-orders/internal/order-service/app"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/constants"
)

const maxBodyBytes = 1 << 20

// OrderService is the application surface the handlers drive.
type OrderService interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (*app.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, id string) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, id string, approved bool) (*domain.Order, bool, error)
	Mode() app.Mode
}

// Handler handles incoming HTTP requests for the Order domain.
type Handler struct {
	orders OrderService
	logger *slog.Logger
}

func NewHandler(orders OrderService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orders: orders, logger: logger}
}

// CreateOrder places an order. Replays of a recent idempotency key answer
// with the original order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, r, domain.NewValidationError("body", err.Error()))
		return
	}

	// Use comma-ok idiom to safely extract typed context values.
	idempKey, _ := r.Context().Value(constants.ContextKeyIdempotencyKey).(string)
	requestID, _ := r.Context().Value(constants.ContextKeyRequestID).(string)

	h.logger.InfoContext(r.Context(), "creating order", "request_id", requestID, "items", len(req.Items))

	res, err := h.orders.CreateOrder(r.Context(), req.toInput(idempKey))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, http.StatusCreated, CreateOrderResponse{
		Order:        mapOrderToResponse(res.Order),
		ClientSecret: res.ClientSecret,
	})
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), domain.ListFilter{Email: r.URL.Query().Get("email")})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrdersToResponse(orders))
}

// PayOrder settles a pending order. A declined payment answers 400 with
// ok=false after the order is failed and restocked.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	order, paid, err := h.orders.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), req.Approved)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !paid {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, TransitionResponse{OK: paid, Order: mapOrderToResponse(order)})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{OK: true, Order: mapOrderToResponse(order)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": string(h.orders.Mode())})
}

// writeServiceError maps the application error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *domain.ValidationError
		pu  *domain.ProductUnavailableError
		oos *domain.OutOfStockError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "VALIDATION_ERROR",
			Message: ve.Error(),
			Fields:  ve.Fields,
		})
	case errors.As(err, &pu):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "PRODUCT_UNAVAILABLE",
			Message:   pu.Error(),
			ProductID: pu.ProductID,
		})
	case errors.As(err, &oos):
		available := oos.Available
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "OUT_OF_STOCK",
			Message:   oos.Error(),
			ProductID: oos.ProductID,
			Available: &available,
		})
	case errors.Is(err, domain.ErrIdempotencyInFlight):
		writeError(w, http.StatusConflict, "IDEMPOTENCY_KEY_IN_USE", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
	case errors.Is(err, domain.ErrStatusConflict):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", "order is no longer pending")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
