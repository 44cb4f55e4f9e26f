package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/donor/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) UpsertByEmail(ctx context.Context, db *gorm.DB, donor *domain.Donor) (*domain.Donor, error) {
	if db == nil {
		db = r.db
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "phone",
			"document_type", "document_number", "city",
			"wants_updates", "updated_at",
		}),
	}).Create(donor).Error
	if err != nil {
		return nil, err
	}

	// Re-read by email: on conflict the stored row keeps its original ID.
	var stored domain.Donor
	if err := db.WithContext(ctx).Where("email = ?", donor.Email).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Donor, error) {
	if db == nil {
		db = r.db
	}
	var donor domain.Donor
	if err := db.WithContext(ctx).First(&donor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &donor, nil
}
