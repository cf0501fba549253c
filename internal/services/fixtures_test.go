package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier is a mock implementation of notifications.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event notifications.Event) {
	m.Called(ctx, event)
}

func eventOfType(t notifications.EventType) interface{} {
	return mock.MatchedBy(func(e notifications.Event) bool { return e.Type == t })
}

// fakeClock hands out a fixed instant that tests can move.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type lifecycle struct {
	users    *repositories.MockUserRepository
	products *repositories.MockProductRepository
	orders   *repositories.MockOrderRepository
	coupons  *repositories.MockCouponRepository
	returns  *repositories.MockReturnRepository
	notifier *MockNotifier
	clock    *fakeClock

	couponService *services.CouponService
	orderService  *services.OrderService
	returnService *services.ReturnService

	customer *models.User
	shirt    *models.Product
	jeans    *models.Product
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	ctx := context.Background()
	l := &lifecycle{
		users:    repositories.NewMockUserRepository(),
		products: repositories.NewMockProductRepository(),
		orders:   repositories.NewMockOrderRepository(),
		coupons:  repositories.NewMockCouponRepository(),
		returns:  repositories.NewMockReturnRepository(),
		notifier: new(MockNotifier),
		clock:    &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	l.couponService = services.NewCouponService(l.coupons, l.clock.Now)
	l.orderService = services.NewOrderService(services.OrderServiceDeps{
		Orders:   l.orders,
		Users:    l.users,
		Products: l.products,
		Coupons:  l.couponService,
		Pricing:  services.NewPricingEngine(services.DefaultPricingPolicy()),
		Notifier: l.notifier,
		Now:      l.clock.Now,
	})
	l.returnService = services.NewReturnService(services.ReturnServiceDeps{
		Returns:  l.returns,
		Orders:   l.orders,
		Users:    l.users,
		Notifier: l.notifier,
		Now:      l.clock.Now,
	})

	l.customer = &models.User{Username: "asha", Name: "Asha", Email: "asha@example.com", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, l.users.Create(ctx, l.customer))
	l.shirt = &models.Product{Name: "Oversized Tee", Price: 500}
	require.NoError(t, l.products.Create(ctx, l.shirt))
	l.jeans = &models.Product{Name: "Relaxed Jeans", Price: 1200}
	require.NoError(t, l.products.Create(ctx, l.jeans))
	return l
}

func (l *lifecycle) checkout(method models.PaymentMethod, coupon string, items ...services.CheckoutItem) services.CreateOrderCommand {
	return services.CreateOrderCommand{
		UserID:          l.customer.ID,
		Items:           items,
		ShippingAddress: &models.Address{FullName: "Asha", Line1: "1 Main St", City: "Pune", PostalCode: "411001", Country: "IN"},
		Payment:         models.PaymentInfo{Method: method},
		CouponCode:      coupon,
	}
}

func (l *lifecycle) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	l.notifier.On("Notify", mock.Anything, eventOfType(notifications.EventOrderCreated)).Once()
	order, err := l.orderService.CreateOrder(context.Background(), l.checkout(models.PaymentMethodCOD, "",
		services.CheckoutItem{ProductID: l.shirt.ID, Quantity: 2, Price: 500, Size: "M", Color: "black"},
		services.CheckoutItem{ProductID: l.jeans.ID, Quantity: 1, Price: 1200, Size: "32"},
	))
	require.NoError(t, err)
	return order
}
