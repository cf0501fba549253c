package models

import "time"

// OrderStatus is the persisted fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Valid reports whether s is one of the persisted status values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodRazorpay || m == PaymentMethodCOD
}

// PaymentStatus is the opaque payment confirmation state.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// PaymentInfo describes how an order is paid.
type PaymentInfo struct {
	Method PaymentMethod `json:"method" gorm:"type:varchar(16)"`
	Status PaymentStatus `json:"status" gorm:"type:varchar(16)"`
}

// Address is the shipping address snapshot copied onto an order at checkout.
type Address struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"addressLine1"`
	Line2      string `json:"addressLine2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderItem represents a single line within an order.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"productId" gorm:"type:varchar(36)"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Price     float64 `json:"price"` // unit price at the time of order
}

// StatusHistoryEntry is one append-only record of an order status change.
type StatusHistoryEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   string      `json:"-" gorm:"index;type:varchar(36)"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(32)"`
	Timestamp time.Time   `json:"timestamp"`
	UpdatedBy string      `json:"updatedBy" gorm:"type:varchar(36)"`
}

// TableName keeps the history table name stable.
func (StatusHistoryEntry) TableName() string {
	return "order_status_history"
}

// Order represents a placed customer order.
type Order struct {
	ID                   string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID               string               `json:"user" gorm:"index;type:varchar(36)"`
	OrderItems           []OrderItem          `json:"orderItems" gorm:"foreignKey:OrderID"`
	ShippingAddress      Address              `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentInfo          PaymentInfo          `json:"paymentInfo" gorm:"embedded;embeddedPrefix:payment_"`
	CouponCode           string               `json:"couponCode,omitempty" gorm:"type:varchar(64)"`
	Subtotal             float64              `json:"subtotal"`
	SubscriptionDiscount float64              `json:"subscriptionDiscount"`
	CouponDiscount       float64              `json:"couponDiscount"`
	ShippingFee          float64              `json:"shippingFee"`
	CODSurcharge         float64              `json:"codCharge" gorm:"column:cod_surcharge"`
	TotalPrice           float64              `json:"totalPrice"`
	Status               OrderStatus          `json:"status" gorm:"type:varchar(32);default:pending"`
	StatusHistory        []StatusHistoryEntry `json:"statusHistory" gorm:"foreignKey:OrderID"`
	Version              int                  `json:"-" gorm:"not null;default:1"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// CurrentStatus treats an order without an explicit status as pending.
func (o *Order) CurrentStatus() OrderStatus {
	if o.Status == "" {
		return OrderStatusPending
	}
	return o.Status
}

// HasProduct reports whether productID is one of the order's lines.
func (o *Order) HasProduct(productID string) bool {
	for _, item := range o.OrderItems {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// LastStatusChange returns the timestamp of the newest history entry, or the zero time.
func (o *Order) LastStatusChange() time.Time {
	if len(o.StatusHistory) == 0 {
		return time.Time{}
	}
	return o.StatusHistory[len(o.StatusHistory)-1].Timestamp
}
