package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) UpsertByTransactionID(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Payment
		err := tx.Where("wompi_transaction_id = ?", payment.WompiTransactionID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(payment).Error
		case err != nil:
			return err
		}

		return tx.Model(&domain.Payment{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"subscription_id": payment.SubscriptionID,
				"amount":          payment.Amount,
				"currency":        payment.Currency,
				"status":          payment.Status,
				"updated_at":      payment.UpdatedAt,
			}).Error
	})
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, txID string) (*domain.Payment, error) {
	if db == nil {
		db = r.db
	}
	var payment domain.Payment
	if err := db.WithContext(ctx).
		Where("wompi_transaction_id = ?", txID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ExistsSince(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, since time.Time) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("subscription_id = ?", subscriptionID).
		Where("created_at >= ?", since).
		Where("status IN ?", []string{domain.StatusApproved, domain.StatusPending}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type eventRepo struct {
	db *gorm.DB
}

func ProvideEvents(db *gorm.DB) domain.EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) error {
	if db == nil {
		db = r.db
	}
	// Insert-or-ignore keeps the log append-only and turns redeliveries
	// into a detectable no-op instead of a constraint error.
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "event_type"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateEvent
	}
	return nil
}
