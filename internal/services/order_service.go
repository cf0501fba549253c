package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// orderTransitions lists the statuses reachable from each status.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:        {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:      {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:        {models.OrderStatusOutForDelivery, models.OrderStatusCancelled},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:      {},
	models.OrderStatusCancelled:      {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderServiceDeps groups the collaborators of OrderService.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Users    repositories.UserRepository
	Products repositories.ProductRepository
	Coupons  *CouponService
	Pricing  *PricingEngine
	Notifier notifications.Notifier
	Now      func() time.Time
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
	coupons     *CouponService
	pricing     *PricingEngine
	notifier    notifications.Notifier
	now         func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(deps OrderServiceDeps) *OrderService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NopNotifier{}
	}
	if deps.Pricing == nil {
		deps.Pricing = NewPricingEngine(DefaultPricingPolicy())
	}
	return &OrderService{
		orderRepo:   deps.Orders,
		userRepo:    deps.Users,
		productRepo: deps.Products,
		coupons:     deps.Coupons,
		pricing:     deps.Pricing,
		notifier:    deps.Notifier,
		now:         deps.Now,
	}
}

// CheckoutItem is one cart line submitted at checkout. Price is the unit
// price the customer saw when adding the item to the cart.
type CheckoutItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"min=1"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// CreateOrderCommand is a checkout submission.
type CreateOrderCommand struct {
	UserID          string
	Items           []CheckoutItem
	ShippingAddress *models.Address
	Payment         models.PaymentInfo
	CouponCode      string
}

// CreateOrder prices the cart, redeems the coupon if any and stores the
// order as pending. The coupon use is given back if the order cannot be stored.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*models.Order, error) {
	if len(cmd.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if cmd.ShippingAddress == nil {
		return nil, ErrShippingAddressRequired
	}
	if !cmd.Payment.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	user, err := s.loadUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(cmd.Items))
	lines := make([]PricingLine, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, newError(ErrNotFound, ErrProductNotFound.Code, fmt.Sprintf("Product %s not found", item.ProductID))
			}
			return nil, fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Price:     item.Price,
		})
		lines = append(lines, PricingLine{ProductID: product.ID, Quantity: item.Quantity, UnitPrice: item.Price})
	}

	at := s.now()
	var coupon *models.Coupon
	if cmd.CouponCode != "" {
		if s.coupons == nil {
			return nil, ErrCouponNotFound
		}
		subtotal, err := s.pricing.Subtotal(lines)
		if err != nil {
			return nil, err
		}
		if coupon, err = s.coupons.Validate(ctx, cmd.CouponCode, subtotal, at); err != nil {
			return nil, err
		}
	}

	breakdown, err := s.pricing.Calculate(PricingInput{
		Lines:         lines,
		Subscription:  user.Subscription,
		Coupon:        coupon,
		PaymentMethod: cmd.Payment.Method,
		At:            at,
	})
	if err != nil {
		return nil, err
	}

	if coupon != nil {
		if err := s.coupons.Consume(ctx, coupon.ID); err != nil {
			return nil, err
		}
	}

	paymentStatus := models.PaymentStatusPending
	if cmd.Payment.Method == models.PaymentMethodRazorpay && cmd.Payment.Status == models.PaymentStatusPaid {
		paymentStatus = models.PaymentStatusPaid
	}

	order := &models.Order{
		ID:                   uuid.New().String(),
		UserID:               user.ID,
		OrderItems:           items,
		ShippingAddress:      *cmd.ShippingAddress,
		PaymentInfo:          models.PaymentInfo{Method: cmd.Payment.Method, Status: paymentStatus},
		Subtotal:             breakdown.Subtotal,
		SubscriptionDiscount: breakdown.SubscriptionDiscount,
		CouponDiscount:       breakdown.CouponDiscount,
		ShippingFee:          breakdown.Shipping,
		CODSurcharge:         breakdown.CODSurcharge,
		TotalPrice:           breakdown.Total,
		Status:               models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.OrderStatusPending, Timestamp: at, UpdatedBy: user.ID},
		},
		Version:   1,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if coupon != nil {
			s.coupons.Release(ctx, coupon.ID)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	event := notifications.NewEvent(notifications.EventOrderCreated, recipientOf(user), at)
	event.OrderID = order.ID
	event.Status = string(order.Status)
	event.Total = order.TotalPrice
	s.notifier.Notify(ctx, event)

	log.Info().
		Str("order_id", order.ID).
		Str("user_id", user.ID).
		Float64("total", order.TotalPrice).
		Str("coupon", order.CouponCode).
		Msg("Order created")
	return order, nil
}

// UpdateStatus moves an order along its state machine, records the change in
// the status history and notifies the owner.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus models.OrderStatus, actor string) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, validationError("unknown order status %q", newStatus)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current := order.CurrentStatus()
	if !CanTransition(current, newStatus) {
		return nil, newInvalidTransition("order", string(current), string(newStatus))
	}
	owner, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if last := order.LastStatusChange(); at.Before(last) {
		at = last
	}
	entry := models.StatusHistoryEntry{Status: newStatus, Timestamp: at, UpdatedBy: actor}
	if err := s.orderRepo.AppendStatus(ctx, order.ID, order.Version, entry); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStaleWrite):
			return nil, ErrConcurrentUpdate
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = newStatus
	order.StatusHistory = append(order.StatusHistory, entry)
	order.Version++
	order.UpdatedAt = at

	event := notifications.NewEvent(notifications.EventOrderStatusChanged, recipientOf(owner), at)
	event.OrderID = order.ID
	event.Status = string(newStatus)
	s.notifier.Notify(ctx, event)

	log.Info().
		Str("order_id", order.ID).
		Str("from", string(current)).
		Str("to", string(newStatus)).
		Str("actor", actor).
		Msg("Order status updated")
	return order, nil
}

// ConfirmPayment records the external "payment confirmed" signal. Confirming
// an already paid order is a no-op.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentInfo.Status == models.PaymentStatusPaid {
		return order, nil
	}
	if err := s.orderRepo.UpdatePaymentStatus(ctx, order.ID, order.Version, models.PaymentStatusPaid); err != nil {
		if errors.Is(err, repositories.ErrStaleWrite) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	order.PaymentInfo.Status = models.PaymentStatusPaid
	order.Version++
	log.Info().Str("order_id", order.ID).Msg("Order payment confirmed")
	return order, nil
}

// GetOrder returns any order. Admin use only.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.loadOrder(ctx, orderID)
}

// GetOrderForUser returns the order only if userID owns it.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListForUser returns the orders owned by userID.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order. Admin use only.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// DashboardSummary is the admin overview of the order book.
type DashboardSummary struct {
	TotalOrders    int                        `json:"totalOrders"`
	TotalRevenue   float64                    `json:"totalRevenue"`
	PendingOrders  int                        `json:"pendingOrders"`
	ByStatus       map[models.OrderStatus]int `json:"byStatus"`
	UnpaidCODTotal float64                    `json:"unpaidCodTotal"`
}

// Dashboard summarises all orders. Revenue counts delivered orders only.
func (s *OrderService) Dashboard(ctx context.Context) (DashboardSummary, error) {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}
	summary := DashboardSummary{
		TotalOrders: len(orders),
		ByStatus:    make(map[models.OrderStatus]int),
	}
	for i := range orders {
		o := &orders[i]
		status := o.CurrentStatus()
		summary.ByStatus[status]++
		switch status {
		case models.OrderStatusDelivered:
			summary.TotalRevenue += o.TotalPrice
		case models.OrderStatusPending:
			summary.PendingOrders++
		}
		if o.PaymentInfo.Method == models.PaymentMethodCOD && o.PaymentInfo.Status != models.PaymentStatusPaid && status != models.OrderStatusCancelled {
			summary.UnpaidCODTotal += o.TotalPrice
		}
	}
	return summary, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}

func (s *OrderService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(ctx, s.userRepo, userID)
}

func loadUser(ctx context.Context, repo repositories.UserRepository, userID string) (*models.User, error) {
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return user, nil
}

func recipientOf(user *models.User) notifications.Recipient {
	name := user.Name
	if name == "" {
		name = user.Username
	}
	return notifications.Recipient{UserID: user.ID, Name: name, Email: user.Email}
}
