package app

import "errors"

var (
	// Validation.
	ErrNoItems         = errors.New("order: no order items provided")
	ErrInvalidQuantity = errors.New("order: quantity must be at least one")

	// Preconditions.
	ErrNoActiveAddress = errors.New("order: no active shipping address, set one before ordering")

	// Not found.
	ErrOrderNotFound   = errors.New("order: not found")
	ErrProductNotFound = errors.New("order: product not found")
	ErrColorNotFound   = errors.New("order: selected color not found")

	// Stock and availability.
	ErrProductUnavailable = errors.New("order: product is not available")
	ErrColorUnavailable   = errors.New("order: color not available for this product")
	ErrInsufficientStock  = errors.New("order: insufficient stock")

	// State.
	ErrNotPendingPayment       = errors.New("order: order is not awaiting payment")
	ErrPaidOnlyViaVerification = errors.New("order: Paid is reached through payment verification only")

	// Upstream payment gateway. Verification covers a rejected signature,
	// gateway covers the call itself failing.
	ErrPaymentVerification = errors.New("order: payment verification failed")
	ErrPaymentGateway      = errors.New("order: payment gateway unavailable")
)
