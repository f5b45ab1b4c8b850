// Package apperr holds the error kinds shared by the persistence gateway,
// the receipt state machine and the socket handlers.
package apperr

import "errors"

var (
	ErrInvalidRecipient     = errors.New("invalid recipient: not a participant of the chat")
	ErrDeliveryPrecondition = errors.New("message must be delivered before it can be seen")
	ErrNotFound             = errors.New("not found")
	ErrPersistence          = errors.New("persistence failure")
	ErrInvalidPayload       = errors.New("invalid payload")
)

// Wire codes sent back to clients in error events.
const (
	CodeInvalidRecipient     = "invalid_recipient"
	CodeDeliveryPrecondition = "delivery_precondition"
	CodeNotFound             = "not_found"
	CodePersistence          = "persistence_failure"
	CodeInvalidPayload       = "invalid_payload"
	CodeInternal             = "internal_error"
)

// Code maps an error chain to its wire code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRecipient):
		return CodeInvalidRecipient
	case errors.Is(err, ErrDeliveryPrecondition):
		return CodeDeliveryPrecondition
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	default:
		return CodeInternal
	}
}
