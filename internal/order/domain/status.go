package domain

import (
	"errors"
	"fmt"
)

// Status values are persisted as these exact numbers; do not renumber.
type Status int

const (
	StatusPendingPayment Status = 1
	StatusPaid           Status = 2
	StatusShipped        Status = 3
	StatusDelivered      Status = 4
	StatusCancelled      Status = 5
)

var (
	ErrSameStatus     = errors.New("order: already in the requested status")
	ErrDeliveredFinal = errors.New("order: delivered orders cannot be modified")
	ErrUnknownStatus  = errors.New("order: unknown status")
)

// InvalidTransitionError names the rejected (from, to) pair.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: invalid status change from %s to %s", e.From, e.To)
}

// allowedTransitions is the single source of truth for the order lifecycle.
// PendingPayment -> Paid is listed here but only the payment-verification
// path may drive it; Delivered and Cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusCancelled, StatusPaid},
	StatusPaid:           {StatusShipped},
	StatusShipped:        {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CheckTransition reports whether from -> to is a legal lifecycle step.
func CheckTransition(from, to Status) error {
	if from == StatusDelivered {
		return ErrDeliveredFinal
	}
	if from == to {
		return ErrSameStatus
	}

	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// ReleasesStock reports whether the transition carries the stock-release
// side effect. Cancelling an order that never left PendingPayment is the
// only path that restores reserved inventory.
func ReleasesStock(from, to Status) bool {
	return from == StatusPendingPayment && to == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusPendingPayment:
		return "PendingPayment"
	case StatusPaid:
		return "Paid"
	case StatusShipped:
		return "Shipped"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func ParseStatus(v int) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return 0, ErrUnknownStatus
	}
	return s, nil
}
