package core

import (
	"errors"
	"fmt"

	"restaurant-orders/internal/order/domain/models"
	xerrors "restaurant-orders/internal/xpkg/errors"
)

var (
	ErrHelp = xerrors.ErrHelp

	ErrEmptyOrder                = errors.New("order must contain at least one item")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrMissingCancellationReason = errors.New("cancellation reason is required")
	ErrOrderNotFound             = errors.New("order not found")
	ErrValidation                = errors.New("validation failed")
	ErrTotalMismatch             = errors.New("total amount does not match the items")

	// ErrRemoteUnavailable is absorbed by the fallback store and never reaches users.
	ErrRemoteUnavailable   = errors.New("remote order service unavailable")
	ErrLocalStoreCorrupted = errors.New("local order store is corrupted")

	ErrItemUnavailable = errors.New("menu item is not available")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("price with customizations must not be negative")
	ErrLineNotFound    = errors.New("cart line not found")

	ErrMaxConcurrentExceeded = errors.New("too many orders, try again later")
)

// InvalidTransitionError names the current and the attempted status.
type InvalidTransitionError struct {
	From models.Status
	To   models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Kinds travel in API error bodies so that clients can rebuild the sentinel.
const (
	KindEmptyOrder        = "empty_order"
	KindInvalidTransition = "invalid_transition"
	KindMissingReason     = "missing_cancellation_reason"
	KindOrderNotFound     = "order_not_found"
	KindValidation        = "validation"
	KindTotalMismatch     = "total_mismatch"
	KindMaxConcurrent     = "max_concurrent_exceeded"
	KindInternal          = "internal"
)

var kindErrors = map[string]error{
	KindEmptyOrder:        ErrEmptyOrder,
	KindInvalidTransition: ErrInvalidTransition,
	KindMissingReason:     ErrMissingCancellationReason,
	KindOrderNotFound:     ErrOrderNotFound,
	KindValidation:        ErrValidation,
	KindTotalMismatch:     ErrTotalMismatch,
	KindMaxConcurrent:     ErrMaxConcurrentExceeded,
}

// KindOf classifies err for the wire.
func KindOf(err error) string {
	for kind, target := range kindErrors {
		if errors.Is(err, target) {
			return kind
		}
	}
	return KindInternal
}

// ErrorForKind returns the sentinel for kind, or nil when kind is not a business error.
func ErrorForKind(kind string) error {
	return kindErrors[kind]
}

// IsBusinessError reports errors that need new user input and must not trigger the fallback.
func IsBusinessError(err error) bool {
	kind := KindOf(err)
	return kind != KindInternal && kind != KindMaxConcurrent
}
