// Package paymentservice holds the payment gateway clients used when an
// order is paid online.
package paymentservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

const providerStripe = "stripe"

var (
	_ ports.PaymentGateway = (*StripeGateway)(nil)
	_ ports.PaymentGateway = Disabled{}
)

type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// StripeGateway creates payment intents through the Stripe REST API.
type StripeGateway struct {
	secretKey string
	client    *resty.Client
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &StripeGateway{
		secretKey: cfg.SecretKey,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetRetryCount(0), // retries go through the circuit breaker, not the client
	}
}

func (g *StripeGateway) Enabled() bool { return g.secretKey != "" }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentIntent is idempotent on req.IdempotencyKey: Stripe returns the
// original intent when the same key is replayed.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req ports.PaymentIntentRequest) (ports.PaymentIntent, error) {
	if !g.Enabled() {
		return ports.PaymentIntent{}, &domain.GatewayError{Provider: providerStripe, Err: domain.ErrGatewayDisabled}
	}

	var (
		intent stripeIntent
		apiErr stripeErrorBody
	)
	r := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.secretKey, "").
		SetFormData(map[string]string{
			"amount":                              strconv.FormatInt(req.AmountMinor, 10),
			"currency":                            req.Currency,
			"automatic_payment_methods[enabled]": "true",
			"metadata[order_id]":                  req.OrderID,
		}).
		SetResult(&intent).
		SetError(&apiErr)
	if req.IdempotencyKey != "" {
		r.SetHeader("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := r.Post("/v1/payment_intents")
	if err != nil {
		return ports.PaymentIntent{}, &domain.GatewayError{Provider: providerStripe, Err: err}
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return ports.PaymentIntent{}, &domain.GatewayError{
			Provider: providerStripe,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode(), msg),
		}
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return ports.PaymentIntent{}, &domain.GatewayError{
			Provider: providerStripe,
			Err:      errors.New("response is missing the intent id or client secret"),
		}
	}

	return ports.PaymentIntent{ProviderID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Disabled is the gateway used when no credentials are configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreatePaymentIntent(context.Context, ports.PaymentIntentRequest) (ports.PaymentIntent, error) {
	return ports.PaymentIntent{}, domain.ErrGatewayDisabled
}
