package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CouponHandler serves the checkout coupon box and coupon administration.
type CouponHandler struct {
	service  *services.CouponService
	validate *validator.Validate
}

func NewCouponHandler(service *services.CouponService) *CouponHandler {
	return &CouponHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the offers list shown before sign-in.
func (h *CouponHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/coupons", h.HandleListPublic)
}

// RegisterRoutes registers the customer coupon routes.
func (h *CouponHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/coupons/apply", h.HandleApply)
}

// RegisterAdminRoutes registers the coupon routes of the admin console.
func (h *CouponHandler) RegisterAdminRoutes(router fiber.Router) {
	couponRoutes := router.Group("/coupons")
	couponRoutes.Post("/", h.HandleCreate)
	couponRoutes.Get("/", h.HandleList)
	couponRoutes.Post("/sweep", h.HandleSweep)
}

func (h *CouponHandler) HandleListPublic(c *fiber.Ctx) error {
	coupons, err := h.service.ListPublic(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Coupons retrieved", coupons)
}

// ApplyCouponRequest is sent by the checkout page. UserID is accepted for
// compatibility; the token decides who is applying.
type ApplyCouponRequest struct {
	Code      string  `json:"code" validate:"required"`
	UserID    string  `json:"userId"`
	CartTotal float64 `json:"cartTotal" validate:"gte=0"`
}

// HandleApply checks a coupon against the cart total without redeeming it.
func (h *CouponHandler) HandleApply(c *fiber.Ctx) error {
	var req ApplyCouponRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}
	if req.UserID != "" && req.UserID != middleware.UserID(c) {
		return errorResponse(c, fiber.StatusForbidden, "forbidden", "Coupon can only be applied to your own cart", nil)
	}

	quote, err := h.service.Apply(c.UserContext(), req.Code, req.CartTotal)
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Coupon applied", quote)
}

func (h *CouponHandler) HandleCreate(c *fiber.Ctx) error {
	var req services.CreateCouponCommand
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}
	req.CreatedBy = middleware.UserID(c)

	coupon, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return createdResponse(c, "Coupon created", coupon)
}

func (h *CouponHandler) HandleList(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Coupons retrieved", coupons)
}

// HandleSweep marks expired and used-up coupons.
func (h *CouponHandler) HandleSweep(c *fiber.Ctx) error {
	swept, err := h.service.Sweep(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return successResponse(c, "Coupons swept", fiber.Map{"updated": swept})
}
