package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dominus-shop/order-engine/internal/order/app"
)

// AddressRepo implements the order service's AddressProvider port over the
// shipping_addresses table.
type AddressRepo struct {
	db *sql.DB
}

func NewAddressRepo(db *sql.DB) *AddressRepo {
	return &AddressRepo{db: db}
}

func (r *AddressRepo) Active(ctx context.Context, userID string) (app.Address, error) {
	var a app.Address
	err := r.db.QueryRowContext(ctx,
		`SELECT address_line, city, state, pincode
		   FROM shipping_addresses
		  WHERE user_id = $1 AND is_active AND NOT is_deleted
		  ORDER BY updated_at DESC
		  LIMIT 1`, userID,
	).Scan(&a.Line, &a.City, &a.State, &a.Pincode)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Address{}, app.ErrNoActiveAddress
	}
	if err != nil {
		return app.Address{}, fmt.Errorf("load active address: %w", err)
	}
	return a, nil
}
