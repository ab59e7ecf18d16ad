package domain

import "errors"

// Domain errors
var (
	// Not-found errors
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")

	// Validation errors
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidEventID      = errors.New("invalid event id")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrUnknownTicketType   = errors.New("unknown ticket type")
	ErrInvalidBuyer        = errors.New("buyer name and a valid email are required")
	ErrInvalidEventName    = errors.New("event name is required")
	ErrInvalidTicketType   = errors.New("ticket type name is required")
	ErrDuplicateTicketType = errors.New("duplicate ticket type")
	ErrInvalidTicketPrice  = errors.New("ticket price cannot be negative")
	ErrInvalidTicketCount  = errors.New("ticket availability cannot be negative")

	// Conflict errors
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrReservationNotActive = errors.New("reservation is not active")

	// Transient storage contention, retried internally before surfacing.
	ErrStorageContention = errors.New("storage contention")
)

// IsNotFoundError checks if the error is a not found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrPurchaseNotFound)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrUnknownTicketType) ||
		errors.Is(err, ErrInvalidBuyer) ||
		errors.Is(err, ErrInvalidEventName) ||
		errors.Is(err, ErrInvalidTicketType) ||
		errors.Is(err, ErrDuplicateTicketType) ||
		errors.Is(err, ErrInvalidTicketPrice) ||
		errors.Is(err, ErrInvalidTicketCount)
}

// IsConflictError checks if the error is a conflict error.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReservationNotActive)
}
