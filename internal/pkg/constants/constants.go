package constants

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	HeaderXRequestId = "x-request-id"

	// HeaderIdempotencyKey is the header clients send on order submission.
	// HeaderXIdempotencyKey is accepted as a legacy alias.
	HeaderIdempotencyKey  = "Idempotency-Key"
	HeaderXIdempotencyKey = "x-idempotency-key"

	ContextKeyRequestID      contextKey = HeaderXRequestId
	ContextKeyIdempotencyKey contextKey = HeaderXIdempotencyKey
)
