package models

import "time"

// ReturnStatus is the admin decision on a return request.
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
)

// ReturnRequest is a customer request to return one product of one order.
// A user holds at most one request per (order, product) pair.
type ReturnRequest struct {
	ID        string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string       `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_returns_user_order_product"`
	OrderID   string       `json:"orderId" gorm:"type:varchar(36);not null;uniqueIndex:idx_returns_user_order_product"`
	ProductID string       `json:"productId" gorm:"type:varchar(36);not null;uniqueIndex:idx_returns_user_order_product"`
	Reason    string       `json:"reason"`
	Status    ReturnStatus `json:"status" gorm:"type:varchar(16);default:pending"`
	Received  bool         `json:"received" gorm:"not null;default:false"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ReturnWithContact is a return annotated with its owner's contact details.
type ReturnWithContact struct {
	ReturnRequest
	User UserContact `json:"user"`
}
