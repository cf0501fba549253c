package repositories

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMReturnRepository is a GORM implementation of ReturnRepository.
type GORMReturnRepository struct {
	db *gorm.DB
}

// NewGORMReturnRepository creates a new instance of GORMReturnRepository.
func NewGORMReturnRepository(db *gorm.DB) *GORMReturnRepository {
	return &GORMReturnRepository{
		db: db,
	}
}

// Create stores a return request. The unique index on (user_id, order_id,
// product_id) settles concurrent duplicate requests.
func (r *GORMReturnRepository) Create(ctx context.Context, ret *models.ReturnRequest) error {
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("return for order %s product %s: %w", ret.OrderID, ret.ProductID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create return request: %w", err)
	}
	return nil
}

// GetByID retrieves a return request by its ID.
func (r *GORMReturnRepository) GetByID(ctx context.Context, id string) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	if err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("return with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get return by ID %s: %w", id, err)
	}
	return &ret, nil
}

// ListByUser returns the requests of one user, newest first.
func (r *GORMReturnRepository) ListByUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	var returns []models.ReturnRequest
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("failed to list returns of user %s: %w", userID, err)
	}
	return returns, nil
}

// ListAll returns every request, newest first.
func (r *GORMReturnRepository) ListAll(ctx context.Context) ([]models.ReturnRequest, error) {
	var returns []models.ReturnRequest
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	return returns, nil
}

// UpdateStatus applies a compare-and-set on the status column.
func (r *GORMReturnRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReturnStatus) error {
	res := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update return %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("return %s is no longer %s: %w", id, from, ErrStaleWrite)
}

// MarkReceived sets the received flag.
func (r *GORMReturnRepository) MarkReceived(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"received": true, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark return %s received: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("return with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
