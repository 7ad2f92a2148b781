package models

// Customer is the order service's customer record as the till shows it. Its
// ID goes into QueuedOrder.CustomerID.
type Customer struct {
	ID     string `json:"id"`
	Cedula string `json:"cedula"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}
