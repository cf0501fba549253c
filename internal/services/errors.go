package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of them,
// so handlers can pick the transport status with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
)

// LifecycleError is a typed service error with a stable machine-readable code.
type LifecycleError struct {
	Kind    error
	Code    string
	Message string
}

func (e *LifecycleError) Error() string {
	return e.Message
}

// Unwrap exposes the kind to errors.Is.
func (e *LifecycleError) Unwrap() error {
	return e.Kind
}

// Is matches two lifecycle errors by code, so errors built at runtime with a
// custom message still match the sentinel of the same code.
func (e *LifecycleError) Is(target error) bool {
	t, ok := target.(*LifecycleError)
	return ok && t.Code == e.Code
}

func newError(kind error, code, message string) *LifecycleError {
	return &LifecycleError{Kind: kind, Code: code, Message: message}
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, "validation_failed", fmt.Sprintf(format, args...))
}

func newInvalidTransition(subject string, from, to string) error {
	return newError(ErrInvalidTransition, "invalid_transition",
		fmt.Sprintf("cannot move %s from %s to %s", subject, from, to))
}

var (
	ErrEmptyCart               = newError(ErrValidation, "empty_cart", "No order items")
	ErrShippingAddressRequired = newError(ErrValidation, "shipping_address_required", "Shipping address required")
	ErrInvalidPaymentMethod    = newError(ErrValidation, "invalid_payment_method", "Payment method must be razorpay or cod")

	ErrOrderNotFound   = newError(ErrNotFound, "order_not_found", "Order not found")
	ErrUserNotFound    = newError(ErrNotFound, "user_not_found", "User not found")
	ErrProductNotFound = newError(ErrNotFound, "product_not_found", "Product not found")
	ErrReturnNotFound  = newError(ErrNotFound, "return_not_found", "Return request not found")

	ErrCouponNotFound     = newError(ErrNotFound, "coupon_not_found", "Invalid coupon code")
	ErrCouponInactive     = newError(ErrValidation, "coupon_inactive", "Coupon is not active")
	ErrCouponExpired      = newError(ErrValidation, "coupon_expired", "Coupon has expired or is not yet valid")
	ErrCouponLimitReached = newError(ErrConflict, "coupon_limit_reached", "Coupon usage limit reached")
	ErrCouponBelowMinimum = newError(ErrValidation, "coupon_below_minimum", "Cart total is below the coupon minimum purchase")
	ErrDuplicateCoupon    = newError(ErrConflict, "duplicate_coupon", "Coupon code already exists")

	ErrDuplicateReturn   = newError(ErrConflict, "duplicate_return", "You have already requested a return for this product.")
	ErrProductNotInOrder = newError(ErrValidation, "product_not_in_order", "Product is not part of this order")

	ErrConcurrentUpdate = newError(ErrConflict, "concurrent_update", "Record was modified concurrently, please retry")

	ErrUsernameTaken      = newError(ErrConflict, "username_taken", "Username already taken")
	ErrEmailTaken         = newError(ErrConflict, "email_taken", "Email already registered")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid_credentials", "invalid credentials")
)

// ErrorCode returns the machine-readable code of err, or "internal_error".
func ErrorCode(err error) string {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.Code
	}
	return "internal_error"
}
