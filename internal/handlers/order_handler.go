package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the customer order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/my", h.HandleGetMyOrders)
	orderRoutes.Get("/my/:id", h.HandleGetMyOrder)
}

// RegisterAdminRoutes registers the order routes of the admin console.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/dashboard", h.HandleDashboard)
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Patch("/:id/payment", h.HandleConfirmPayment)
}

// CreateOrderRequest is the checkout form.
type CreateOrderRequest struct {
	OrderItems      []services.CheckoutItem `json:"orderItems" validate:"dive"`
	ShippingAddress *models.Address         `json:"shippingAddress"`
	PaymentInfo     models.PaymentInfo      `json:"paymentInfo"`
	CouponCode      string                  `json:"couponCode" validate:"omitempty,max=64"`
}

// HandleCreateOrder places an order for the signed-in user.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	order, err := h.service.CreateOrder(c.UserContext(), services.CreateOrderCommand{
		UserID:          middleware.UserID(c),
		Items:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		Payment:         req.PaymentInfo,
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return createdResponse(c, "Order placed successfully", order)
}

// HandleGetMyOrders lists the orders of the signed-in user, newest first.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Orders retrieved", orders)
}

// HandleGetMyOrder returns one order of the signed-in user.
func (h *OrderHandler) HandleGetMyOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrderForUser(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Order retrieved", order)
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Orders retrieved", orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Order retrieved", order)
}

// UpdateOrderStatusRequest carries the target status of an order.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateOrderStatusRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	order, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, middleware.UserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Order status updated", order)
}

// HandleConfirmPayment marks an order as paid.
func (h *OrderHandler) HandleConfirmPayment(c *fiber.Ctx) error {
	order, err := h.service.ConfirmPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Payment confirmed", order)
}

// HandleDashboard returns the order figures of the admin console.
func (h *OrderHandler) HandleDashboard(c *fiber.Ctx) error {
	summary, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Dashboard retrieved", summary)
}
