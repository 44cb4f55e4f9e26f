package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error

	// UpsertByTransactionID updates the existing payment row carrying the
	// same gateway transaction id, or inserts a new one. The lookup and
	// write run inside one database transaction. Concurrent redeliveries
	// can still each miss the lookup and insert twice; the transaction id
	// index is non-unique, and the next upsert converges on one row.
	UpsertByTransactionID(ctx context.Context, db *gorm.DB, payment *Payment) error

	FindByTransactionID(ctx context.Context, db *gorm.DB, txID string) (*Payment, error)

	// ExistsSince reports whether the subscription has an approved or
	// pending payment created at or after the given instant.
	ExistsSince(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, since time.Time) (bool, error)
}

type EventRepository interface {
	// Insert appends the sanitized event. Returns ErrDuplicateEvent when
	// the unique constraint rejects a redelivery.
	Insert(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
}
