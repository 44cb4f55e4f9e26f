package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByPaymentSourceID(ctx context.Context, db *gorm.DB, sourceID string) (*Subscription, error)
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Subscription, error)

	// FindDue returns active monthly subscriptions with a stored payment
	// source whose next_payment_date is at or before now.
	FindDue(ctx context.Context, db *gorm.DB, now time.Time) ([]Subscription, error)

	// AnyID reads one subscription id, used by the keepalive probe.
	AnyID(ctx context.Context, db *gorm.DB) (snowflake.ID, error)
}
