package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusCompleted = "COMPLETED"
	OrderStatusPending   = "PENDING"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRefunded  = "REFUNDED"

	MovementTypeSale       = "SALE"
	MovementTypeAdjustment = "ADJUSTMENT"
)

// PaymentMethods accepted at the till.
var PaymentMethods = map[string]struct{}{
	"CASH":     {},
	"CARD":     {},
	"TRANSFER": {},
	"OTHER":    {},
}

// OrderStatuses that PATCH /orders/:id/status may set.
var OrderStatuses = map[string]struct{}{
	OrderStatusCompleted: {},
	OrderStatusPending:   {},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string    `gorm:"uniqueIndex;not null" json:"order_number"`
	// LocalID is the terminal-generated id of an order captured offline. The
	// unique index is what makes a replayed commit a no-op.
	LocalID        *string        `gorm:"type:varchar(64);uniqueIndex" json:"local_id,omitempty"`
	CashierID      *string        `gorm:"type:varchar(64);index" json:"cashier_id,omitempty"`
	CustomerID     *string        `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`
	TotalAmount    float64        `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaymentMethod  string         `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status         string         `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	CreatedAtLocal *time.Time     `json:"created_at_local,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems     []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal  float64   `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

type StockMovement struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Type      string     `gorm:"type:varchar(20);not null" json:"type"`
	// Quantity is signed: sales are negative.
	Quantity  int       `gorm:"not null" json:"quantity"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RejectedCommit keeps a queued commit the order service refused, so an
// operator can fix the catalog or the order and resend it.
type RejectedCommit struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LocalID    string    `gorm:"type:varchar(64);index" json:"local_id,omitempty"`
	StatusCode int       `gorm:"not null" json:"status_code"`
	Reason     string    `gorm:"not null" json:"reason"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Cedula    string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"cedula"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CommitOrderRequest is sent by a terminal, directly or through the commit
// queue, to record a completed sale.
type CommitOrderRequest struct {
	LocalID        string            `json:"local_id"`
	Items          []CommitOrderItem `json:"items" binding:"required,min=1,dive"`
	TotalAmount    float64           `json:"total_amount"`
	PaymentMethod  string            `json:"payment_method" binding:"required"`
	CustomerID     *string           `json:"customer_id,omitempty"`
	CashierID      *string           `json:"cashier_id,omitempty"`
	CreatedAtLocal *time.Time        `json:"created_at_local,omitempty"`
}

type CommitOrderItem struct {
	ProductID string  `json:"product_id" binding:"required"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

type CommitOrderResponse struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	Duplicate   bool    `json:"duplicate"`
}

type CreateProductRequest struct {
	Name  string  `json:"name" binding:"required"`
	Price float64 `json:"price" binding:"gte=0"`
	Stock int     `json:"stock" binding:"gte=0"`
}

type CreateCustomerRequest struct {
	Cedula string `json:"cedula" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"omitempty,email"`
	Phone  string `json:"phone"`
}

// AdjustStockRequest records a manual stock change such as a delivery or a
// stock count correction.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderCommittedEvent is published after a commit transaction succeeds.
type OrderCommittedEvent struct {
	Event         string          `json:"event"`
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	LocalID       string          `json:"local_id,omitempty"`
	CashierID     string          `json:"cashier_id,omitempty"`
	TotalAmount   float64         `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []CommittedItem `json:"items"`
	Timestamp     time.Time       `json:"timestamp"`
}

type CommittedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
