package app

import (
	"context"
	"errors"
	"strings"

	"github.com/dominus-shop/order-engine/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("catalog: invalid input")
	ErrNotFound     = errors.New("catalog: product not found")
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, name, desc, currency string, amount int64, stock int32) (domain.Product, error) {
	name = strings.TrimSpace(name)
	currency = strings.TrimSpace(currency)

	if name == "" || currency == "" || amount <= 0 || stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}

	p := domain.Product{
		Name:         name,
		Description:  desc,
		PriceAmount:  amount,
		Currency:     currency,
		CurrentStock: stock,
		InStock:      stock > 0,
		IsActive:     true,
	}

	return s.repo.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

// AddStock is the admin inventory-increment path; it is unrelated to order
// cancellation and never touches orders.
func (s *Service) AddStock(ctx context.Context, id string, quantity int32) (domain.Product, error) {
	if strings.TrimSpace(id) == "" || quantity <= 0 {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.AddStock(ctx, id, quantity)
}
