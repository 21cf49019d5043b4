package domain

import "time"

// Order is the aggregate root. TotalAmount and ShippingAddress are snapshots
// taken at creation and never recomputed; status changes go through
// CheckTransition.
type Order struct {
	ID              string
	UserID          string
	OrderDate       time.Time
	TotalAmount     int64
	ShippingAddress string
	Status          Status

	// PaymentReference and PaidOn are set on successful verification and
	// cleared when reserved stock is released.
	PaymentReference string
	PaidOn           *time.Time

	// ExternalOrderID is the gateway-side order id. Empty between the local
	// commit and the gateway call; the reconciler backfills it.
	ExternalOrderID string

	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is one (product, color) line. Price is the per-unit amount in
// minor units at order time; lines are immutable after creation.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	ColorID   string
	Quantity  int32
	Price     int64
}

func (o *Order) LineTotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
