package dto

import "time"

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID          int64      `json:"id"`
	OrderNumber int        `json:"order_number"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadyAt     *time.Time `json:"ready_at"`
	Language    string     `json:"language"`
}

// OrderItemResponse is one order line with its localized name.
type OrderItemResponse struct {
	ID         int64  `json:"id"`
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

// OrderEventResponse is one status transition.
type OrderEventResponse struct {
	ID           int64     `json:"id"`
	EventType    string    `json:"event_type"`
	TerminalName string    `json:"terminal_name"`
	Timestamp    time.Time `json:"timestamp"`
	NewStatus    string    `json:"new_status"`
}

// OrderDetailsResponse is an order with its lines and history.
type OrderDetailsResponse struct {
	OrderResponse
	Items  []OrderItemResponse  `json:"items"`
	Events []OrderEventResponse `json:"events"`
}
