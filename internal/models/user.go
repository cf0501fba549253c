package models

import "time"

// User roles carried in the JWT and checked by the admin middleware.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Subscription is the paid membership state read by the pricing engine.
type Subscription struct {
	IsSubscribed       bool       `json:"isSubscribed"`
	SubscriptionExpiry *time.Time `json:"subscriptionExpiry,omitempty"`
	SubscriptionCost   float64    `json:"subscriptionCost"`
}

// Active reports whether the subscription still grants a discount at the given instant.
func (s Subscription) Active(at time.Time) bool {
	return s.IsSubscribed && s.SubscriptionExpiry != nil && s.SubscriptionExpiry.After(at)
}

// User represents a customer or an admin of the store.
type User struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username     string       `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Name         string       `json:"name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Email        string       `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Phone        string       `json:"phone,omitempty" gorm:"type:varchar(32)" validate:"omitempty,max=32"`
	Password     string       `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	Role         string       `json:"role" gorm:"type:varchar(16);default:customer"`
	Subscription Subscription `json:"subscription" gorm:"embedded;embeddedPrefix:subscription_"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Contact returns the fields exposed to admins next to a user's returns.
func (u User) Contact() UserContact {
	return UserContact{Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// UserContact is the owner information attached to admin return listings.
type UserContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
