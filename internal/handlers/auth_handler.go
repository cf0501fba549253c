package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterAccountRoutes registers the routes of the signed-in customer.
func (h *AuthHandler) RegisterAccountRoutes(router fiber.Router) {
	router.Post("/user/subscription", h.HandleActivateSubscription)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles new customer registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	name := req.Name
	if name == "" {
		name = req.Username
	}
	user := models.User{
		Username: req.Username,
		Name:     name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     models.RoleCustomer,
	}
	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		log.Warn().Err(err).Str("username", req.Username).Msg("Error registering user")
		return serviceError(c, err)
	}

	// For security, do not return the password hash
	user.Password = ""
	return createdResponse(c, "User registered successfully", user)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		log.Info().Str("username", req.Username).Msg("Login failed")
		return serviceError(c, err)
	}

	return successResponse(c, "Login successful", fiber.Map{"token": token})
}

// HandleActivateSubscription starts a membership for the signed-in user.
func (h *AuthHandler) HandleActivateSubscription(c *fiber.Ctx) error {
	var req services.ActivateSubscriptionCommand
	if apiErr := parseBody(c, h.validate, &req); apiErr != nil {
		return invalidBody(c, apiErr)
	}

	user, err := h.authService.ActivateSubscription(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return serviceError(c, err)
	}
	user.Password = ""
	return successResponse(c, "Subscription activated", user)
}
