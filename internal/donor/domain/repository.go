package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// UpsertByEmail inserts the donor or refreshes the existing row that
	// shares its email, and returns the canonical stored record.
	UpsertByEmail(ctx context.Context, db *gorm.DB, donor *Donor) (*Donor, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Donor, error)
}
