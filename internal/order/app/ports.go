package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dominus-shop/order-engine/internal/order/domain"
)

// CreateOrderItem is one requested (product, color) line.
type CreateOrderItem struct {
	ProductID string
	ColorID   string
	Quantity  int32
}

type AdminListFilter struct {
	Page     int
	PageSize int
	Status   *domain.Status
}

type OrderPage struct {
	Page       int
	PageSize   int
	TotalCount int
	Orders     []domain.Order
}

// OrderRepo is the durable order store. The write methods carry the
// transactional contract of the engine:
//
//   - CreateWithReservation runs the per-line guarded stock decrements and
//     the order/items inserts in one transaction; any line failure rolls
//     back everything.
//   - CancelAndRelease re-reads the status under lock, and only a
//     PendingPayment order is cancelled: stock is restored per line and the
//     payment fields are cleared, all in one transaction. A second call
//     fails with ErrNotPendingPayment, never double-releases.
//   - MarkPaid and UpdateStatus are compare-and-set on the expected current
//     status so concurrent transitions cannot both apply.
type OrderRepo interface {
	CreateWithReservation(ctx context.Context, order domain.Order, items []CreateOrderItem) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	SetExternalOrderID(ctx context.Context, id, externalOrderID string) error
	MarkPaid(ctx context.Context, id, paymentRef string, paidOn time.Time) error
	CancelAndRelease(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListByUserAndProduct(ctx context.Context, userID, productID string) ([]domain.Order, error)
	ListAdmin(ctx context.Context, filter AdminListFilter) (OrderPage, error)
	ListPendingWithoutExternal(ctx context.Context, limit int) ([]domain.Order, error)
}

type Address struct {
	Line    string
	City    string
	State   string
	Pincode string
}

// Snapshot flattens the address into the immutable string stored on the
// order.
func (a Address) Snapshot() string {
	return fmt.Sprintf("%s, %s, %s - %s", a.Line, a.City, a.State, a.Pincode)
}

// AddressProvider exposes the caller's active shipping address; returns
// ErrNoActiveAddress when there is none.
type AddressProvider interface {
	Active(ctx context.Context, userID string) (Address, error)
}

// PaymentGateway is the external payment collaborator. CreatePayableOrder
// is blocking with no retries; VerifySignature either accepts the
// signature or returns an error.
type PaymentGateway interface {
	CreatePayableOrder(ctx context.Context, amountMinor int64, receipt string) (string, error)
	VerifySignature(externalOrderID, paymentID, signature string) error
}

// ReceiptKey correlates the gateway-side order with the local one.
func ReceiptKey(orderID string) string {
	return "ORD_" + orderID
}
