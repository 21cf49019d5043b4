package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dominus-shop/order-engine/internal/catalog/app"
	"github.com/dominus-shop/order-engine/internal/catalog/domain"
)

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price_amount, currency,
		                       current_stock, in_stock, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.PriceAmount, p.Currency,
		p.CurrentStock, p.InStock, p.IsActive,
	)

	var id uuid.UUID
	if err := row.Scan(&id, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	p.ID = id.String()
	return p, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return domain.Product{}, app.ErrNotFound
	}

	p, err := r.scanProduct(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, price_amount, currency,
		        current_stock, in_stock, is_active, is_deleted, created_at, updated_at
		   FROM products WHERE id = $1`, productID))
	if err != nil {
		return domain.Product{}, err
	}

	p.Colors, err = r.loadColors(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// AddStock increments atomically and recomputes the derived in_stock flag.
func (r *ProductRepo) AddStock(ctx context.Context, id string, quantity int32) (domain.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return domain.Product{}, app.ErrNotFound
	}

	p, err := r.scanProduct(r.db.QueryRowContext(ctx,
		`UPDATE products
		    SET current_stock = current_stock + $2,
		        in_stock      = TRUE,
		        updated_at    = now()
		  WHERE id = $1 AND NOT is_deleted
		  RETURNING id, name, description, price_amount, currency,
		            current_stock, in_stock, is_active, is_deleted, created_at, updated_at`,
		productID, quantity))
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) scanProduct(row *sql.Row) (domain.Product, error) {
	var (
		p  domain.Product
		id uuid.UUID
	)
	err := row.Scan(&id, &p.Name, &p.Description, &p.PriceAmount, &p.Currency,
		&p.CurrentStock, &p.InStock, &p.IsActive, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}

	p.ID = id.String()
	return p, nil
}

func (r *ProductRepo) loadColors(ctx context.Context, productID uuid.UUID) ([]domain.Color, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.hex_code, c.is_active, c.is_deleted
		   FROM colors c
		   JOIN product_colors pc ON pc.color_id = c.id
		  WHERE pc.product_id = $1 AND NOT pc.is_deleted`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("load colors: %w", err)
	}
	defer rows.Close()

	var colors []domain.Color
	for rows.Next() {
		var (
			c  domain.Color
			id uuid.UUID
		)
		if err := rows.Scan(&id, &c.Name, &c.HexCode, &c.IsActive, &c.IsDeleted); err != nil {
			return nil, err
		}
		c.ID = id.String()
		colors = append(colors, c)
	}
	return colors, rows.Err()
}
