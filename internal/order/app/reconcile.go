package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dominus-shop/order-engine/pkg/metrics"
)

// Reconciler closes the gap between the local order commit and the gateway
// order creation: a crash between the two leaves a PendingPayment order
// with no external handle. Each tick finds such orders and retries the
// gateway call with the original receipt key.
type Reconciler struct {
	orders  OrderRepo
	gateway PaymentGateway

	interval time.Duration
	batch    int

	log *slog.Logger
	m   *metrics.Metrics
}

func NewReconciler(orders OrderRepo, gateway PaymentGateway, interval time.Duration, batch int, log *slog.Logger, m *metrics.Metrics) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Reconciler{
		orders:   orders,
		gateway:  gateway,
		interval: interval,
		batch:    batch,
		log:      log,
		m:        m,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				r.log.Error("reconcile pass failed", slog.Any("err", err))
			}
		}
	}
}

// ReconcileOnce processes a single batch. Per-order gateway failures are
// logged and counted but do not abort the batch.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	orders, err := r.orders.ListPendingWithoutExternal(ctx, r.batch)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, o := range orders {
		o := o
		g.Go(func() error {
			externalID, err := r.gateway.CreatePayableOrder(ctx, o.TotalAmount, ReceiptKey(o.ID))
			if err != nil {
				r.m.ReconcileAttempts.WithLabelValues("failure").Inc()
				r.log.Warn("gateway retry failed",
					slog.String("order_id", o.ID), slog.Any("err", err))
				return nil
			}

			if err := r.orders.SetExternalOrderID(ctx, o.ID, externalID); err != nil {
				r.m.ReconcileAttempts.WithLabelValues("failure").Inc()
				r.log.Warn("store external order id failed",
					slog.String("order_id", o.ID), slog.Any("err", err))
				return nil
			}

			r.m.ReconcileAttempts.WithLabelValues("success").Inc()
			return nil
		})
	}

	return g.Wait()
}
