package repositories

import (
	"context"
	"storefront/internal/models"
)

// ProductRepository is the catalog lookup used at checkout.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
}
