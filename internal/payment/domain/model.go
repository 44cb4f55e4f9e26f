package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusDeclined = "declined"
)

// Payment records one gateway transaction outcome. SubscriptionID is nil
// when the webhook could not match the transaction to a subscription.
// Status is the lower-cased raw gateway status, so values outside the
// three known constants are stored as-is.
type Payment struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	SubscriptionID *snowflake.ID `json:"subscription_id" gorm:"index"`
	Amount         int64         `json:"amount" gorm:"not null"`
	Currency       string        `json:"currency" gorm:"type:varchar(3);not null"`
	Status         string        `json:"status" gorm:"type:varchar(30);not null"`

	// Deduplication key for webhook upserts. Not database-unique: rows
	// written at intake confirm time have no transaction id yet.
	WompiTransactionID string `json:"wompi_transaction_id" gorm:"type:text;index"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// WebhookEvent is the append-only raw-event log. The unique index over
// (transaction id, event type) makes redelivered events conflict; the
// conflict is tolerated, not fatal. Payload holds only the sanitized
// copy of the event, never cardholder or customer data.
type WebhookEvent struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	TransactionID *string        `json:"transaction_id" gorm:"type:text;uniqueIndex:ux_webhook_events_tx_type"`
	EventType     string         `json:"event_type" gorm:"type:text;not null;uniqueIndex:ux_webhook_events_tx_type"`
	Payload       datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt    time.Time      `json:"received_at" gorm:"not null;index"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
