package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func successResponse(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, fiber.StatusOK, message, data)
}

func createdResponse(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, fiber.StatusCreated, message, data)
}

func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	})
}

func errorResponse(c *fiber.Ctx, status int, code, message string, details map[string]string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	})
}

// serviceError maps a service error kind onto the HTTP status. Unclassified
// errors are logged and hidden behind a generic message.
func serviceError(c *fiber.Ctx, err error) error {
	code := services.ErrorCode(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		return errorResponse(c, fiber.StatusBadRequest, code, err.Error(), nil)
	case errors.Is(err, services.ErrUnauthorized):
		return errorResponse(c, fiber.StatusUnauthorized, code, err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, code, err.Error(), nil)
	case errors.Is(err, services.ErrConflict):
		return errorResponse(c, fiber.StatusConflict, code, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidTransition):
		return errorResponse(c, fiber.StatusUnprocessableEntity, code, err.Error(), nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Str("request_id", getRequestID(c)).Msg("Request failed")
	return errorResponse(c, fiber.StatusInternalServerError, code, "Internal server error", nil)
}

// ErrorHandler renders errors that escape the route handlers, such as
// middleware rejections and unknown routes, in the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Str("request_id", getRequestID(c)).Msg("Request failed")
		}
		return errorResponse(c, fe.Code, httpErrorCode(fe.Code), fe.Message, nil)
	}
	return serviceError(c, err)
}

func httpErrorCode(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	}
	if status >= fiber.StatusInternalServerError {
		return "internal_error"
	}
	return strings.ToLower(strings.ReplaceAll(utils.StatusMessage(status), " ", "_"))
}

// parseBody decodes and validates the request body into dst. A non-nil
// result describes why the body was rejected.
func parseBody(c *fiber.Ctx, validate *validator.Validate, dst interface{}) *APIError {
	if err := c.BodyParser(dst); err != nil {
		log.Debug().Err(err).Str("path", c.Path()).Msg("Error parsing request body")
		return &APIError{Code: "bad_request", Message: "Invalid request body"}
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return &APIError{Code: "bad_request", Message: "Validation failed"}
		}
		errorMessages := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return &APIError{Code: "bad_request", Message: "Validation failed", Details: errorMessages}
	}
	return nil
}

func invalidBody(c *fiber.Ctx, apiErr *APIError) error {
	return errorResponse(c, fiber.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

func getRequestID(c *fiber.Ctx) string {
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		if id, ok := c.Locals("request_id").(string); ok {
			return id
		}
		requestID = uuid.New().String()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
	}
	return requestID
}
