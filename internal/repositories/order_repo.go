package repositories

import (
	"context"
	"storefront/internal/models"
)

// OrderRepository defines the interface for order data operations.
//
// Writes after creation are guarded by the order version: AppendStatus and
// UpdatePaymentStatus only apply when the stored version still equals
// expectedVersion and return ErrStaleWrite otherwise.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	AppendStatus(ctx context.Context, id string, expectedVersion int, entry models.StatusHistoryEntry) error
	UpdatePaymentStatus(ctx context.Context, id string, expectedVersion int, status models.PaymentStatus) error
}
