package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Save(sub).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	if db == nil {
		db = r.db
	}
	var sub domain.Subscription
	if err := db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByPaymentSourceID(ctx context.Context, db *gorm.DB, sourceID string) (*domain.Subscription, error) {
	if db == nil {
		db = r.db
	}
	var sub domain.Subscription
	if err := db.WithContext(ctx).
		Where("wompi_payment_source_id = ?", sourceID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Subscription, error) {
	if db == nil {
		db = r.db
	}
	var sub domain.Subscription
	if err := db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindDue(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Subscription, error) {
	if db == nil {
		db = r.db
	}
	var subs []domain.Subscription
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("frequency = ?", domain.FrequencyMonthly).
		Where("wompi_payment_source_id IS NOT NULL").
		Where("next_payment_date IS NOT NULL").
		Where("next_payment_date <= ?", now).
		Order("next_payment_date ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) AnyID(ctx context.Context, db *gorm.DB) (snowflake.ID, error) {
	if db == nil {
		db = r.db
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}
