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

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// cloneOrder copies the slices so callers never share backing arrays with the store.
func cloneOrder(o models.Order) models.Order {
	o.OrderItems = append([]models.OrderItem(nil), o.OrderItems...)
	o.StatusHistory = append([]models.StatusHistoryEntry(nil), o.StatusHistory...)
	return o
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, ErrDuplicate)
	}
	if order.Version == 0 {
		order.Version = 1
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// ListByUser returns the orders of one user, newest first.
func (r *MockOrderRepository) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.UserID == userID }), nil
}

// ListAll returns all orders, newest first.
func (r *MockOrderRepository) ListAll(_ context.Context) ([]models.Order, error) {
	return r.list(func(models.Order) bool { return true }), nil
}

func (r *MockOrderRepository) list(match func(models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if match(order) {
			orderList = append(orderList, cloneOrder(order))
		}
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].CreatedAt.After(orderList[j].CreatedAt) })
	return orderList
}

// AppendStatus updates the status of an order and records the history entry.
func (r *MockOrderRepository) AppendStatus(_ context.Context, id string, expectedVersion int, entry models.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.checkVersion(id, expectedVersion)
	if err != nil {
		return err
	}
	entry.OrderID = id
	entry.ID = uint(len(order.StatusHistory) + 1)
	order.Status = entry.Status
	order.StatusHistory = append(order.StatusHistory, entry)
	order.UpdatedAt = entry.Timestamp
	order.Version++
	r.orders[id] = order
	return nil
}

// UpdatePaymentStatus updates the payment status of an order.
func (r *MockOrderRepository) UpdatePaymentStatus(_ context.Context, id string, expectedVersion int, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.checkVersion(id, expectedVersion)
	if err != nil {
		return err
	}
	order.PaymentInfo.Status = status
	order.UpdatedAt = time.Now()
	order.Version++
	r.orders[id] = order
	return nil
}

// checkVersion must be called with the write lock held.
func (r *MockOrderRepository) checkVersion(id string, expectedVersion int) (models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	if order.Version != expectedVersion {
		return models.Order{}, fmt.Errorf("order %s at version %d: %w", id, expectedVersion, ErrStaleWrite)
	}
	return cloneOrder(order), nil
}
