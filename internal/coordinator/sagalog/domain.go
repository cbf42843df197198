// Package sagalog records every state transition of an order placement saga.
//
// Rows are append-only. Each carries the trace and span ids of the request
// that produced it, so a placement can be followed from the log into the
// distributed trace, and the execution mode so fallback placements are easy
// to spot.
package sagalog

import "time"

// Status represents the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// SagaLog is a single row in the saga_logs table.
type SagaLog struct {
	// SagaID is the order ID the placement is creating.
	SagaID string

	// Mode is "transactional" or "fallback".
	Mode string

	Status Status

	// CurrentStep is the step that just executed or failed.
	CurrentStep string

	// Payload is the JSON order input, written on STARTED only.
	Payload string

	// ErrorMessages is a JSON array, one entry per failed step or
	// compensation.
	ErrorMessages string

	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
