package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dominus-shop/order-engine/internal/order/domain"
	"github.com/dominus-shop/order-engine/pkg/metrics"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type Service struct {
	orders    OrderRepo
	addresses AddressProvider
	gateway   PaymentGateway

	// gatewayKey is the public key id returned to clients so they can open
	// the gateway checkout for the created order.
	gatewayKey string

	log *slog.Logger
	m   *metrics.Metrics
}

func NewService(orders OrderRepo, addresses AddressProvider, gateway PaymentGateway, gatewayKey string, log *slog.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Service{
		orders:     orders,
		addresses:  addresses,
		gateway:    gateway,
		gatewayKey: gatewayKey,
		log:        log,
		m:          m,
	}
}

type CreateOrderResult struct {
	Order      domain.Order
	GatewayKey string
}

// CreateOrder reserves stock and persists the order in one transaction,
// then asks the gateway for a payable order keyed by the durable order id.
// The gateway call deliberately happens after the local commit so no row
// stays locked across the network; if it fails, the fresh order is
// cancelled again, which releases the reservation.
func (s *Service) CreateOrder(ctx context.Context, userID string, items []CreateOrderItem) (CreateOrderResult, error) {
	if len(items) == 0 {
		return CreateOrderResult{}, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return CreateOrderResult{}, ErrInvalidQuantity
		}
	}

	addr, err := s.addresses.Active(ctx, userID)
	if err != nil {
		return CreateOrderResult{}, err
	}

	created, err := s.orders.CreateWithReservation(ctx, domain.Order{
		UserID:          userID,
		ShippingAddress: addr.Snapshot(),
		Status:          domain.StatusPendingPayment,
	}, items)
	if err != nil {
		return CreateOrderResult{}, err
	}
	s.m.OrdersCreated.Inc()

	externalID, err := s.gateway.CreatePayableOrder(ctx, created.TotalAmount, ReceiptKey(created.ID))
	if err != nil {
		if relErr := s.orders.CancelAndRelease(ctx, created.ID); relErr != nil {
			s.log.Error("release after gateway failure",
				slog.String("order_id", created.ID), slog.Any("err", relErr))
		} else {
			s.m.OrdersCancelled.Inc()
		}
		return CreateOrderResult{}, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if err := s.orders.SetExternalOrderID(ctx, created.ID, externalID); err != nil {
		// The order stays PendingPayment without a handle; the reconciler
		// picks it up on the next tick.
		return CreateOrderResult{}, fmt.Errorf("store external order id: %w", err)
	}
	created.ExternalOrderID = externalID

	return CreateOrderResult{Order: created, GatewayKey: s.gatewayKey}, nil
}

type VerifyPaymentRequest struct {
	OrderID         string
	ExternalOrderID string
	PaymentID       string
	Signature       string
}

// VerifyPayment settles a PendingPayment order. A valid signature moves it
// to Paid; an invalid one cancels it, releasing the reserved stock. Repeat
// calls on a settled order fail with ErrNotPendingPayment and touch
// nothing.
func (s *Service) VerifyPayment(ctx context.Context, userID string, req VerifyPaymentRequest) error {
	o, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrOrderNotFound
	}
	if o.Status != domain.StatusPendingPayment {
		return ErrNotPendingPayment
	}

	if err := s.gateway.VerifySignature(req.ExternalOrderID, req.PaymentID, req.Signature); err != nil {
		if relErr := s.orders.CancelAndRelease(ctx, o.ID); relErr != nil {
			if !errors.Is(relErr, ErrNotPendingPayment) {
				s.log.Error("release after failed verification",
					slog.String("order_id", o.ID), slog.Any("err", relErr))
			}
		} else {
			s.m.OrdersCancelled.Inc()
		}
		return fmt.Errorf("%w: %v", ErrPaymentVerification, err)
	}

	if err := s.orders.MarkPaid(ctx, o.ID, req.PaymentID, time.Now().UTC()); err != nil {
		return err
	}
	s.m.OrdersPaid.Inc()
	return nil
}

// CancelOrder is the owner-initiated cancellation, allowed only while the
// order is still awaiting payment.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrOrderNotFound
	}
	if o.Status != domain.StatusPendingPayment {
		return ErrNotPendingPayment
	}

	if err := s.orders.CancelAndRelease(ctx, orderID); err != nil {
		return err
	}
	s.m.OrdersCancelled.Inc()
	return nil
}

// AdminUpdateStatus applies a lifecycle transition after the full legality
// check. Admins may move Paid -> Shipped -> Delivered or force
// PendingPayment -> Cancelled; Paid itself is reserved for verification.
func (s *Service) AdminUpdateStatus(ctx context.Context, orderID string, newStatus domain.Status) error {
	if !newStatus.Valid() {
		return domain.ErrUnknownStatus
	}
	if newStatus == domain.StatusPaid {
		return ErrPaidOnlyViaVerification
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if err := domain.CheckTransition(o.Status, newStatus); err != nil {
		return err
	}

	if domain.ReleasesStock(o.Status, newStatus) {
		if err := s.orders.CancelAndRelease(ctx, orderID); err != nil {
			return err
		}
		s.m.OrdersCancelled.Inc()
		return nil
	}

	return s.orders.UpdateStatus(ctx, orderID, o.Status, newStatus)
}

func (s *Service) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) OrdersByProduct(ctx context.Context, userID, productID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders, nil
}

// AdminOrders lists orders with clamped pagination; out-of-range values are
// adjusted rather than rejected.
func (s *Service) AdminOrders(ctx context.Context, page, pageSize int, status *domain.Status) (OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.orders.ListAdmin(ctx, AdminListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   status,
	})
}
