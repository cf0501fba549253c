package repositories

import (
	"context"
	"fmt"
	"sort"
	"storefront/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockReturnRepository is an in-memory implementation of ReturnRepository.
type MockReturnRepository struct {
	returns map[string]models.ReturnRequest
	mu      sync.RWMutex
}

// NewMockReturnRepository creates a new instance of MockReturnRepository.
func NewMockReturnRepository() *MockReturnRepository {
	return &MockReturnRepository{
		returns: make(map[string]models.ReturnRequest),
	}
}

// Create adds a request unless the user already has one for the same order line.
func (r *MockReturnRepository) Create(_ context.Context, ret *models.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.returns {
		if existing.UserID == ret.UserID && existing.OrderID == ret.OrderID && existing.ProductID == ret.ProductID {
			return fmt.Errorf("return for order %s product %s: %w", ret.OrderID, ret.ProductID, ErrDuplicate)
		}
	}
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	now := time.Now()
	ret.CreatedAt = now
	ret.UpdatedAt = now
	r.returns[ret.ID] = *ret
	return nil
}

// GetByID returns a request by its ID.
func (r *MockReturnRepository) GetByID(_ context.Context, id string) (*models.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret, ok := r.returns[id]
	if !ok {
		return nil, fmt.Errorf("return with ID %s: %w", id, ErrNotFound)
	}
	return &ret, nil
}

// ListByUser returns the requests of one user, newest first.
func (r *MockReturnRepository) ListByUser(_ context.Context, userID string) ([]models.ReturnRequest, error) {
	return r.list(func(ret models.ReturnRequest) bool { return ret.UserID == userID }), nil
}

// ListAll returns all requests, newest first.
func (r *MockReturnRepository) ListAll(_ context.Context) ([]models.ReturnRequest, error) {
	return r.list(func(models.ReturnRequest) bool { return true }), nil
}

func (r *MockReturnRepository) list(match func(models.ReturnRequest) bool) []models.ReturnRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	returnList := make([]models.ReturnRequest, 0, len(r.returns))
	for _, ret := range r.returns {
		if match(ret) {
			returnList = append(returnList, ret)
		}
	}
	sort.Slice(returnList, func(i, j int) bool { return returnList[i].CreatedAt.After(returnList[j].CreatedAt) })
	return returnList
}

// UpdateStatus moves a request from one status to another.
func (r *MockReturnRepository) UpdateStatus(_ context.Context, id string, from, to models.ReturnStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ret, ok := r.returns[id]
	if !ok {
		return fmt.Errorf("return with ID %s: %w", id, ErrNotFound)
	}
	if ret.Status != from {
		return fmt.Errorf("return %s is no longer %s: %w", id, from, ErrStaleWrite)
	}
	ret.Status = to
	ret.UpdatedAt = time.Now()
	r.returns[id] = ret
	return nil
}

// MarkReceived sets the received flag.
func (r *MockReturnRepository) MarkReceived(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ret, ok := r.returns[id]
	if !ok {
		return fmt.Errorf("return with ID %s: %w", id, ErrNotFound)
	}
	ret.Received = true
	ret.UpdatedAt = time.Now()
	r.returns[id] = ret
	return nil
}
