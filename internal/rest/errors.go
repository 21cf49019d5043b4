package rest

import (
	"errors"
	"net/http"

	catalogapp "github.com/dominus-shop/order-engine/internal/catalog/app"
	orderapp "github.com/dominus-shop/order-engine/internal/order/app"
	"github.com/dominus-shop/order-engine/internal/order/domain"
)

// statusFromError maps the engine's error taxonomy to an HTTP status and a
// stable machine-readable code. Anything unmapped is a genuine
// infrastructure failure and surfaces as 500.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, orderapp.ErrNoItems),
		errors.Is(err, orderapp.ErrInvalidQuantity),
		errors.Is(err, catalogapp.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownStatus):
		return http.StatusBadRequest, "INVALID_ARGUMENT"

	case errors.Is(err, orderapp.ErrNoActiveAddress),
		errors.Is(err, orderapp.ErrProductUnavailable),
		errors.Is(err, orderapp.ErrColorUnavailable),
		errors.Is(err, orderapp.ErrPaidOnlyViaVerification):
		return http.StatusBadRequest, "FAILED_PRECONDITION"

	case errors.Is(err, orderapp.ErrOrderNotFound),
		errors.Is(err, orderapp.ErrProductNotFound),
		errors.Is(err, orderapp.ErrColorNotFound),
		errors.Is(err, catalogapp.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"

	case errors.Is(err, orderapp.ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"

	case errors.Is(err, orderapp.ErrNotPendingPayment),
		errors.Is(err, domain.ErrSameStatus),
		errors.Is(err, domain.ErrDeliveredFinal):
		return http.StatusConflict, "INVALID_STATE"

	case errors.Is(err, orderapp.ErrPaymentVerification):
		return http.StatusBadRequest, "PAYMENT_VERIFICATION_FAILED"

	case errors.Is(err, orderapp.ErrPaymentGateway):
		return http.StatusBadGateway, "UPSTREAM_PAYMENT"
	}

	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		return http.StatusConflict, "INVALID_TRANSITION"
	}

	return http.StatusInternalServerError, "INTERNAL"
}
