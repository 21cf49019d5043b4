package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dominus-shop/order-engine/internal/order/domain"
)

// fakeStore is an in-memory OrderRepo with the same atomicity contract as
// the postgres implementation: all-or-nothing reservation, at-most-once
// release, compare-and-set transitions.
type fakeProduct struct {
	price   int64
	stock   int32
	active  bool
	deleted bool
	colors  map[string]bool // colorID -> available on this product
}

type fakeStore struct {
	mu       sync.Mutex
	products map[string]*fakeProduct
	orders   map[string]*domain.Order
	seq      int

	lastAdminFilter *AdminListFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]*fakeProduct{},
		orders:   map[string]*domain.Order{},
	}
}

func (f *fakeStore) addProduct(id string, price int64, stock int32, colors ...string) {
	available := map[string]bool{}
	for _, c := range colors {
		available[c] = true
	}
	f.products[id] = &fakeProduct{price: price, stock: stock, active: true, colors: available}
}

func (f *fakeStore) stock(id string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].stock
}

func (f *fakeStore) order(id string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneOrder(f.orders[id])
}

func cloneOrder(o *domain.Order) domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.PaidOn != nil {
		t := *o.PaidOn
		out.PaidOn = &t
	}
	return out
}

func (f *fakeStore) CreateWithReservation(_ context.Context, order domain.Order, items []CreateOrderItem) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Validate every line before touching any counter.
	for _, it := range items {
		p, ok := f.products[it.ProductID]
		if !ok || p.deleted {
			return domain.Order{}, ErrProductNotFound
		}
		if !p.active || p.stock <= 0 {
			return domain.Order{}, ErrProductUnavailable
		}
		if p.stock < it.Quantity {
			return domain.Order{}, ErrInsufficientStock
		}
		available, known := p.colors[it.ColorID]
		if !known {
			return domain.Order{}, ErrColorNotFound
		}
		if !available {
			return domain.Order{}, ErrColorUnavailable
		}
	}

	f.seq++
	o := order
	o.ID = fmt.Sprintf("order-%d", f.seq)
	o.OrderDate = time.Now().UTC()
	o.Status = domain.StatusPendingPayment

	var total int64
	for _, it := range items {
		p := f.products[it.ProductID]
		p.stock -= it.Quantity
		o.Items = append(o.Items, domain.OrderItem{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Quantity:  it.Quantity,
			Price:     p.price,
		})
		total += p.price * int64(it.Quantity)
	}
	o.TotalAmount = total

	stored := cloneOrder(&o)
	f.orders[o.ID] = &stored
	return o, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeStore) SetExternalOrderID(_ context.Context, id, externalOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.ExternalOrderID = externalOrderID
	return nil
}

func (f *fakeStore) MarkPaid(_ context.Context, id, paymentRef string, paidOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != domain.StatusPendingPayment {
		return ErrNotPendingPayment
	}
	o.Status = domain.StatusPaid
	o.PaymentReference = paymentRef
	o.PaidOn = &paidOn
	return nil
}

func (f *fakeStore) CancelAndRelease(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != domain.StatusPendingPayment {
		return ErrNotPendingPayment
	}

	for _, it := range o.Items {
		f.products[it.ProductID].stock += it.Quantity
	}
	o.Status = domain.StatusCancelled
	o.PaymentReference = ""
	o.PaidOn = nil
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return domain.CheckTransition(o.Status, to)
	}
	o.Status = to
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (f *fakeStore) ListByUserAndProduct(_ context.Context, userID, productID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID != userID {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID {
				out = append(out, cloneOrder(o))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListAdmin(_ context.Context, filter AdminListFilter) (OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAdminFilter = &filter
	return OrderPage{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (f *fakeStore) ListPendingWithoutExternal(_ context.Context, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Order
	for _, o := range f.orders {
		if o.Status == domain.StatusPendingPayment && o.ExternalOrderID == "" {
			out = append(out, cloneOrder(o))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeAddresses struct {
	addr Address
	err  error
}

func (f fakeAddresses) Active(context.Context, string) (Address, error) {
	if f.err != nil {
		return Address{}, f.err
	}
	return f.addr, nil
}

type gatewayCall struct {
	amount  int64
	receipt string
}

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	verifyErr error
	seq       int
	created   []gatewayCall
}

func (f *fakeGateway) CreatePayableOrder(_ context.Context, amountMinor int64, receipt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	f.created = append(f.created, gatewayCall{amount: amountMinor, receipt: receipt})
	return fmt.Sprintf("rzp_order_%d", f.seq), nil
}

func (f *fakeGateway) VerifySignature(string, string, string) error {
	return f.verifyErr
}
