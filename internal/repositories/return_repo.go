package repositories

import (
	"context"
	"storefront/internal/models"
)

// ReturnRepository defines the interface for return request data operations.
type ReturnRepository interface {
	// Create stores a new request and returns ErrDuplicate when the user
	// already has one for the same order and product.
	Create(ctx context.Context, ret *models.ReturnRequest) error
	GetByID(ctx context.Context, id string) (*models.ReturnRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.ReturnRequest, error)
	ListAll(ctx context.Context) ([]models.ReturnRequest, error)
	// UpdateStatus moves the request from one status to another and returns
	// ErrStaleWrite if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.ReturnStatus) error
	MarkReceived(ctx context.Context, id string) error
}
