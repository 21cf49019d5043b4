package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dominus-shop/order-engine/internal/order/app"
	"github.com/dominus-shop/order-engine/internal/order/domain"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) execTX(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// CreateWithReservation inserts the order and its lines and decrements stock
// for every line in a single transaction. The decrement is a guarded update
// (current_stock >= quantity), so two concurrent orders for the last unit
// cannot both commit. Any line failure rolls back the whole order.
func (r *OrderRepo) CreateWithReservation(ctx context.Context, order domain.Order, items []app.CreateOrderItem) (domain.Order, error) {
	// Lock product rows in a stable order to avoid deadlocks between
	// concurrent multi-line orders.
	lines := make([]app.CreateOrderItem, len(items))
	copy(lines, items)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var created domain.Order

	err := r.execTX(ctx, func(tx *sql.Tx) error {
		type pricedLine struct {
			productID uuid.UUID
			colorID   uuid.UUID
			quantity  int32
			price     int64
		}

		priced := make([]pricedLine, 0, len(lines))
		var total int64

		for _, it := range lines {
			productID, err := uuid.Parse(it.ProductID)
			if err != nil {
				return app.ErrProductNotFound
			}
			colorID, err := uuid.Parse(it.ColorID)
			if err != nil {
				return app.ErrColorNotFound
			}

			var (
				price     int64
				stock     int32
				isActive  bool
				isDeleted bool
			)
			err = tx.QueryRowContext(ctx,
				`SELECT price_amount, current_stock, is_active, is_deleted
				   FROM products WHERE id = $1`,
				productID,
			).Scan(&price, &stock, &isActive, &isDeleted)
			if errors.Is(err, sql.ErrNoRows) {
				return app.ErrProductNotFound
			}
			if err != nil {
				return fmt.Errorf("load product: %w", err)
			}
			if isDeleted {
				return app.ErrProductNotFound
			}
			if !isActive || stock <= 0 {
				return app.ErrProductUnavailable
			}
			if stock < it.Quantity {
				return app.ErrInsufficientStock
			}

			var (
				colorActive  bool
				colorDeleted bool
				mapped       bool
			)
			err = tx.QueryRowContext(ctx,
				`SELECT c.is_active, c.is_deleted,
				        EXISTS (SELECT 1 FROM product_colors pc
				                 WHERE pc.product_id = $1 AND pc.color_id = $2
				                   AND NOT pc.is_deleted)
				   FROM colors c WHERE c.id = $2`,
				productID, colorID,
			).Scan(&colorActive, &colorDeleted, &mapped)
			if errors.Is(err, sql.ErrNoRows) {
				return app.ErrColorNotFound
			}
			if err != nil {
				return fmt.Errorf("load color: %w", err)
			}
			if colorDeleted {
				return app.ErrColorNotFound
			}
			if !colorActive || !mapped {
				return app.ErrColorUnavailable
			}

			// The guard is authoritative under concurrency; the earlier read
			// only produces the friendlier error.
			res, err := tx.ExecContext(ctx,
				`UPDATE products
				    SET current_stock = current_stock - $2,
				        in_stock      = current_stock - $2 > 0,
				        updated_at    = now()
				  WHERE id = $1 AND current_stock >= $2`,
				productID, it.Quantity,
			)
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return app.ErrInsufficientStock
			}

			priced = append(priced, pricedLine{
				productID: productID,
				colorID:   colorID,
				quantity:  it.Quantity,
				price:     price,
			})
			total += price * int64(it.Quantity)
		}

		var (
			orderID   uuid.UUID
			orderDate time.Time
			createdAt time.Time
			updatedAt time.Time
		)
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, total_amount, shipping_address, status)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, order_date, created_at, updated_at`,
			order.UserID, total, order.ShippingAddress, int(domain.StatusPendingPayment),
		).Scan(&orderID, &orderDate, &createdAt, &updatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		orderItems := make([]domain.OrderItem, 0, len(priced))
		for _, line := range priced {
			var itemID uuid.UUID
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, color_id, quantity, price)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				orderID, line.productID, line.colorID, line.quantity, line.price,
			).Scan(&itemID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			orderItems = append(orderItems, domain.OrderItem{
				ID:        itemID.String(),
				OrderID:   orderID.String(),
				ProductID: line.productID.String(),
				ColorID:   line.colorID.String(),
				Quantity:  line.quantity,
				Price:     line.price,
			})
		}

		created = domain.Order{
			ID:              orderID.String(),
			UserID:          order.UserID,
			OrderDate:       orderDate,
			TotalAmount:     total,
			ShippingAddress: order.ShippingAddress,
			Status:          domain.StatusPendingPayment,
			Items:           orderItems,
			CreatedAt:       createdAt,
			UpdatedAt:       updatedAt,
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return created, nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return domain.Order{}, app.ErrOrderNotFound
	}

	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, app.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	o.Items, err = r.loadItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) SetExternalOrderID(ctx context.Context, id, externalOrderID string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return app.ErrOrderNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET external_order_id = $2, updated_at = now() WHERE id = $1`,
		orderID, externalOrderID,
	)
	if err != nil {
		return fmt.Errorf("set external order id: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return app.ErrOrderNotFound
	}
	return nil
}

// MarkPaid is a compare-and-set from PendingPayment; a concurrent
// transition makes it fail instead of double-crediting.
func (r *OrderRepo) MarkPaid(ctx context.Context, id, paymentRef string, paidOn time.Time) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return app.ErrOrderNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		    SET status = $2, payment_reference = $3, paid_on = $4, updated_at = now()
		  WHERE id = $1 AND status = $5`,
		orderID, int(domain.StatusPaid), paymentRef, paidOn, int(domain.StatusPendingPayment),
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.currentStatus(ctx, orderID); err != nil {
			return err
		}
		return app.ErrNotPendingPayment
	}
	return nil
}

// CancelAndRelease re-reads the order status under a row lock, then in the
// same transaction restores every line's stock and clears the payment
// fields. Only a PendingPayment order can be released, so the release runs
// at most once per order.
func (r *OrderRepo) CancelAndRelease(ctx context.Context, id string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return app.ErrOrderNotFound
	}

	return r.execTX(ctx, func(tx *sql.Tx) error {
		var status int
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return app.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if domain.Status(status) != domain.StatusPendingPayment {
			return app.ErrNotPendingPayment
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, orderID,
		)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		type line struct {
			productID uuid.UUID
			quantity  int32
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.productID, &l.quantity); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, l := range lines {
			_, err := tx.ExecContext(ctx,
				`UPDATE products
				    SET current_stock = current_stock + $2,
				        in_stock      = TRUE,
				        updated_at    = now()
				  WHERE id = $1`,
				l.productID, l.quantity,
			)
			if err != nil {
				return fmt.Errorf("release stock: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			    SET status = $2, payment_reference = NULL, paid_on = NULL, updated_at = now()
			  WHERE id = $1`,
			orderID, int(domain.StatusCancelled),
		)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		return nil
	})
}

// UpdateStatus is a side-effect-free compare-and-set used for the
// Paid -> Shipped -> Delivered legs.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.Status) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return app.ErrOrderNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		orderID, int(to), int(from),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cur, err := r.currentStatus(ctx, orderID)
		if err != nil {
			return err
		}
		if terr := domain.CheckTransition(cur, to); terr != nil {
			return terr
		}
		return fmt.Errorf("order %s status changed concurrently", id)
	}
	return nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, selectOrder+` WHERE user_id = $1 ORDER BY order_date DESC`, userID)
}

func (r *OrderRepo) ListByUserAndProduct(ctx context.Context, userID, productID string) ([]domain.Order, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, app.ErrProductNotFound
	}

	return r.list(ctx, selectOrder+`
		 WHERE user_id = $1
		   AND id IN (SELECT order_id FROM order_items WHERE product_id = $2)
		 ORDER BY order_date DESC`, userID, pid)
}

func (r *OrderRepo) ListAdmin(ctx context.Context, filter app.AdminListFilter) (app.OrderPage, error) {
	where := ``
	args := []any{}
	if filter.Status != nil {
		where = ` WHERE status = $1`
		args = append(args, int(*filter.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return app.OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := fmt.Sprintf(`%s%s ORDER BY order_date DESC LIMIT $%d OFFSET $%d`,
		selectOrder, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, offset)

	orders, err := r.list(ctx, query, args...)
	if err != nil {
		return app.OrderPage{}, err
	}

	return app.OrderPage{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		Orders:     orders,
	}, nil
}

func (r *OrderRepo) ListPendingWithoutExternal(ctx context.Context, limit int) ([]domain.Order, error) {
	return r.list(ctx, selectOrder+`
		 WHERE status = $1 AND external_order_id IS NULL
		 ORDER BY order_date ASC LIMIT $2`, int(domain.StatusPendingPayment), limit)
}

const selectOrder = `
	SELECT id, user_id, order_date, total_amount, shipping_address, status,
	       payment_reference, paid_on, external_order_id, created_at, updated_at
	  FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o          domain.Order
		id         uuid.UUID
		status     int
		paymentRef sql.NullString
		paidOn     sql.NullTime
		externalID sql.NullString
	)
	err := row.Scan(&id, &o.UserID, &o.OrderDate, &o.TotalAmount, &o.ShippingAddress,
		&status, &paymentRef, &paidOn, &externalID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	o.ID = id.String()
	o.Status = domain.Status(status)
	o.PaymentReference = paymentRef.String
	if paidOn.Valid {
		t := paidOn.Time
		o.PaidOn = &t
	}
	o.ExternalOrderID = externalID.String
	return o, nil
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orderID, err := uuid.Parse(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items, err = r.loadItems(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, color_id, quantity, price
		   FROM order_items WHERE order_id = $1`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			it        domain.OrderItem
			id        uuid.UUID
			oid       uuid.UUID
			productID uuid.UUID
			colorID   uuid.UUID
		)
		if err := rows.Scan(&id, &oid, &productID, &colorID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		it.ID = id.String()
		it.OrderID = oid.String()
		it.ProductID = productID.String()
		it.ColorID = colorID.String()
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepo) currentStatus(ctx context.Context, orderID uuid.UUID) (domain.Status, error) {
	var status int
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, app.ErrOrderNotFound
	}
	if err != nil {
		return 0, err
	}
	return domain.Status(status), nil
}
