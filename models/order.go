package models

import "time"

// LineItem is one dish position captured at order time. Price is stored
// per unit, so past orders keep their totals when the catalog changes.
type LineItem struct {
	Name  string `bson:"name" json:"name"`
	Price int64  `bson:"price" json:"price"`
	Qty   int    `bson:"qty" json:"qty"`
}

// Sum returns price × quantity for the line.
func (li LineItem) Sum() int64 {
	return li.Price * int64(li.Qty)
}

// Order is the persisted record of one purchase and its fulfillment.
// UserMessageID / GroupMessageID reference the customer-facing and the
// staff-facing notification messages so status changes can edit them in
// place.
type Order struct {
	ID             int64      `bson:"_id" json:"id"`
	UserID         int64      `bson:"user_id" json:"user_id"`
	UserName       string     `bson:"user_name" json:"user_name"`
	Username       string     `bson:"user_username,omitempty" json:"user_username,omitempty"`
	Phone          string     `bson:"phone" json:"phone"`
	Address        string     `bson:"address" json:"address"`
	Items          []LineItem `bson:"items" json:"items"`
	Total          int64      `bson:"total" json:"total"`
	Status         string     `bson:"status" json:"status"`
	Courier        string     `bson:"courier,omitempty" json:"courier,omitempty"`
	Comment        string     `bson:"comment,omitempty" json:"comment,omitempty"`
	CommentTopic   string     `bson:"comment_topic,omitempty" json:"comment_topic,omitempty"`
	UserMessageID  int        `bson:"user_message_id,omitempty" json:"user_message_id,omitempty"`
	GroupMessageID int        `bson:"group_message_id,omitempty" json:"group_message_id,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
}

// Client caches the most recently supplied contact details per customer.
// The Order record stays the source of truth.
type Client struct {
	UserID    int64     `bson:"_id" json:"user_id"`
	Name      string    `bson:"name" json:"name"`
	Phone     string    `bson:"phone" json:"phone"`
	Address   string    `bson:"address" json:"address"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Setting is one row of the flat key→value configuration table.
type Setting struct {
	Key   string `bson:"_id" json:"key"`
	Value string `bson:"value" json:"value"`
}

// Order event types published to the live feed.
const (
	EventOrderCreated  = "order_created"
	EventStatusChanged = "status_changed"
	EventCourierSet    = "courier_set"
)

// OrderEvent is the payload relayed to staff dashboard subscribers.
type OrderEvent struct {
	Type    string    `json:"type"`
	OrderID int64     `json:"order_id"`
	Status  string    `json:"status,omitempty"`
	Courier string    `json:"courier,omitempty"`
	Total   int64     `json:"total,omitempty"`
	At      time.Time `json:"at"`
}
