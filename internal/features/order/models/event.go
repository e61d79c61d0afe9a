package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Event публикуется после коммита
type Event struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	ItemsCount  int             `json:"items_count"`
	Timestamp   time.Time       `json:"timestamp"`
}
