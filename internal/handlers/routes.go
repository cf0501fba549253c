package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Orders   *OrderHandler
	Coupons  *CouponHandler
	Returns  *ReturnHandler
}

// RegisterRoutes mounts public, customer and admin routes. Public routes are
// registered first so the auth middleware of the later groups never sees them.
func RegisterRoutes(app *fiber.App, authService *services.AuthService, h Handlers) {
	api := app.Group("/api/v1")
	h.Auth.RegisterRoutes(api)
	h.Products.RegisterRoutes(api)
	h.Coupons.RegisterPublicRoutes(api)

	customer := api.Group("", middleware.AuthRequired(authService))
	h.Auth.RegisterAccountRoutes(customer)
	h.Orders.RegisterRoutes(customer)
	h.Coupons.RegisterRoutes(customer)
	h.Returns.RegisterRoutes(customer)

	admin := customer.Group("/admin", middleware.AdminRequired())
	h.Orders.RegisterAdminRoutes(admin)
	h.Coupons.RegisterAdminRoutes(admin)
	h.Returns.RegisterAdminRoutes(admin)
}
