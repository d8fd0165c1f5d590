package models

import (
	"time"
)

const (
	CartStatusNotPaid = "not_paid"
	CartStatusPaid    = "paid"

	OrderStatusPending   = "pending"
	OrderStatusShipping  = "shipping"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"

	PaymentMethodCOD  = "COD"
	PaymentMethodBank = "bank_transfer"
)

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string  `gorm:"not null"                  json:"name"`
	Description string  `gorm:"not null"                  json:"description"`
	Price       float64 `gorm:"not null"                  json:"price"`
	ImageURL    string  `json:"image_url"`
	Count       uint    `json:"count"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
}

type Admin struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"not null"                 json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:admin"   json:"role"`
}

// CartItem stays not_paid until an order consumes it; OrderID is stamped at
// that point and the line never returns to the pending set.
type CartItem struct {
	ID        uint    `gorm:"primaryKey"                        json:"id"`
	UserID    uint    `gorm:"index;not null"                    json:"user_id"`
	ProductID uint    `gorm:"not null"                          json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"        json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Status    string  `gorm:"not null;default:not_paid;index"   json:"status"`
	OrderID   *uint   `gorm:"index"                             json:"order_id,omitempty"`
}

// Order is immutable after creation except for Status and CallbackURL.
type Order struct {
	ID              uint    `gorm:"primaryKey"       json:"id"`
	UserID          uint    `gorm:"index;not null"   json:"user_id"`
	RecipientName   string  `json:"recipient_name"`
	RecipientPhone  string  `json:"recipient_phone"`
	ShippingAddress string  `json:"shipping_address"`
	ShippingFee     float64 `json:"shipping_fee"`
	Note            string  `json:"note"`
	PaymentMethod   string  `gorm:"not null"                 json:"payment_method"`
	TotalPrice      float64 `gorm:"not null"                 json:"total_price"`
	Status          string  `gorm:"not null;default:pending" json:"status"`
	CallbackURL     string  `json:"callback_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Payment struct {
	ID            uint      `gorm:"primaryKey"               json:"id"`
	OrderID       uint      `gorm:"index;not null"           json:"order_id"`
	Method        string    `gorm:"not null"                 json:"method"`
	Amount        float64   `gorm:"not null"                 json:"amount"`
	TransactionID string    `json:"transaction_id"`
	PaymentStatus string    `gorm:"not null;default:pending" json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type CareSchedule struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    uint      `gorm:"index"          json:"user_id"`
	ProductID uint      `gorm:"not null"       json:"product_id"`
	TaskType  string    `gorm:"not null"       json:"task_type"`
	TaskDate  time.Time `gorm:"not null"       json:"task_date"`
	Notes     string    `json:"notes"`
}
