package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeTransactionCreated       = "TRANSACTION_CREATED"
	EventTypeTransactionStatusChanged = "TRANSACTION_STATUS_CHANGED"
	EventTypeCatalogChanged           = "CATALOG_CHANGED"
)

// Catalog entities and actions carried by CatalogChangedEvent
const (
	CatalogEntityProduct  = "product"
	CatalogEntityCategory = "category"
	CatalogEntityBrand    = "brand"

	CatalogActionCreated = "created"
	CatalogActionUpdated = "updated"
	CatalogActionDeleted = "deleted"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and the current time
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// TransactionCreatedEvent published after a successful checkout
type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	TotalAmount   int64             `json:"total_amount"`
	ItemCount     int               `json:"item_count"`
	Status        TransactionStatus `json:"status"`
	CustomerName  string            `json:"customer_name"`
}

// TransactionStatusChangedEvent published when an admin confirms or cancels
type TransactionStatusChangedEvent struct {
	BaseEvent
	TransactionID string            `json:"transaction_id"`
	From          TransactionStatus `json:"from"`
	To            TransactionStatus `json:"to"`
}

// CatalogChangedEvent published on any admin write to reference data
type CatalogChangedEvent struct {
	BaseEvent
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Action   string `json:"action"`
}
