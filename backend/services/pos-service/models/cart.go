package models

import (
	"math"
	"time"
)

// Product is the catalog snapshot the terminal passes in when adding to the
// cart. Stock is the last known available quantity.
type Product struct {
	ID    string  `json:"id" binding:"required"`
	Name  string  `json:"name" binding:"required"`
	Price float64 `json:"price" binding:"gte=0"`
	Stock int     `json:"stock"`
}

type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Stock     int     `json:"stock"`
}

func (l CartLine) Subtotal() float64 {
	return RoundMoney(l.UnitPrice * float64(l.Quantity))
}

type Cart struct {
	Lines []CartLine `json:"lines"`
	// CheckoutID becomes the order's local id. It is kept across checkout
	// attempts on the same contents so a retried sale is idempotent, and
	// reset whenever the lines change.
	CheckoutID string    `json:"checkout_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, l := range c.Lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return RoundMoney(total)
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// Items converts the cart lines into order items in cart order.
func (c *Cart) Items() []OrderItem {
	if c == nil {
		return nil
	}
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return items
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
