package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ReturnHandler handles return requests and their review.
type ReturnHandler struct {
	service  *services.ReturnService
	validate *validator.Validate
}

// NewReturnHandler creates a new ReturnHandler.
func NewReturnHandler(service *services.ReturnService) *ReturnHandler {
	return &ReturnHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the customer return routes.
func (h *ReturnHandler) RegisterRoutes(router fiber.Router) {
	returnRoutes := router.Group("/user/returns")
	returnRoutes.Post("/", h.HandleRequestReturn)
	returnRoutes.Get("/", h.HandleGetMyReturns)
}

// RegisterAdminRoutes registers the return routes of the admin console.
func (h *ReturnHandler) RegisterAdminRoutes(router fiber.Router) {
	returnRoutes := router.Group("/returns")
	returnRoutes.Get("/", h.HandleGetReturns)
	returnRoutes.Patch("/:id/status", h.HandleDecide)
	returnRoutes.Patch("/:id/received", h.HandleMarkReceived)
}

// RequestReturnRequest is the return form of one order line. Fields are
// checked by the service so that its messages reach the customer.
type RequestReturnRequest struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Reason    string `json:"reason" validate:"max=1000"`
}

func (h *ReturnHandler) HandleRequestReturn(c *fiber.Ctx) error {
	var req RequestReturnRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	ret, err := h.service.RequestReturn(c.UserContext(), services.RequestReturnCommand{
		UserID:    middleware.UserID(c),
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Reason:    req.Reason,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return createdResponse(c, "Return request placed", ret)
}

func (h *ReturnHandler) HandleGetMyReturns(c *fiber.Ctx) error {
	returns, err := h.service.ListForUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Return requests retrieved", returns)
}

// HandleGetReturns lists every return request with the requester's contact.
func (h *ReturnHandler) HandleGetReturns(c *fiber.Ctx) error {
	returns, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Return requests retrieved", returns)
}

// DecideReturnRequest carries the admin decision.
type DecideReturnRequest struct {
	Status models.ReturnStatus `json:"status" validate:"required"`
}

func (h *ReturnHandler) HandleDecide(c *fiber.Ctx) error {
	var req DecideReturnRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	ret, err := h.service.Decide(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Return status updated", ret)
}

func (h *ReturnHandler) HandleMarkReceived(c *fiber.Ctx) error {
	ret, err := h.service.MarkReceived(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Return marked as received", ret)
}
