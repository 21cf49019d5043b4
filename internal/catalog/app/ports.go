package app

import (
	"context"

	"github.com/dominus-shop/order-engine/internal/catalog/domain"
)

type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	AddStock(ctx context.Context, id string, quantity int32) (domain.Product, error)
}
