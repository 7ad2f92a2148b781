package models

import "time"

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentOther    PaymentMethod = "OTHER"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// QueuedOrder is a sale captured on the terminal that the server has not
// confirmed yet. It leaves the queue only after a confirmed commit and is
// never mutated in place.
type QueuedOrder struct {
	LocalID        string        `json:"local_id"`
	Items          []OrderItem   `json:"items"`
	TotalAmount    float64       `json:"total_amount"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	CustomerID     *string       `json:"customer_id,omitempty"`
	CashierID      *string       `json:"cashier_id,omitempty"`
	CreatedAtLocal time.Time     `json:"created_at_local"`
}

// ComputedTotal is the sum of unit price times quantity over the items.
func (o QueuedOrder) ComputedTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return RoundMoney(total)
}

// CheckoutRequest is what the terminal UI posts to finish a sale from the
// current cart.
type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required"`
	CustomerID    *string       `json:"customer_id,omitempty"`
}

type CheckoutResponse struct {
	// Status is "completed" when the server committed the order and "queued"
	// when it was stored for a later sync.
	Status      string  `json:"status"`
	LocalID     string  `json:"local_id"`
	OrderID     string  `json:"order_id,omitempty"`
	TotalAmount float64 `json:"total_amount"`
	Message     string  `json:"message,omitempty"`
}

const (
	CheckoutCompleted = "completed"
	CheckoutQueued    = "queued"
)

// ReviewEntry is a queued order the server kept rejecting. It waits for a
// person to requeue or discard it.
type ReviewEntry struct {
	Order      QueuedOrder `json:"order"`
	Rejections int         `json:"rejections"`
	LastError  string      `json:"last_error"`
	MovedAt    time.Time   `json:"moved_at"`
}

// SyncOutcome summarises one sync pass.
type SyncOutcome struct {
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	Rejected      int           `json:"rejected"`
	MovedToReview int           `json:"moved_to_review"`
	Residual      []QueuedOrder `json:"residual"`
	Skipped       bool          `json:"skipped"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
}

type QueueStatus struct {
	Online      bool         `json:"online"`
	QueueLength int          `json:"queue_length"`
	ReviewCount int          `json:"review_count"`
	Syncing     bool         `json:"syncing"`
	LastSync    *SyncOutcome `json:"last_sync,omitempty"`
	CheckedAt   time.Time    `json:"checked_at"`
}
