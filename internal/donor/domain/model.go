package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Donor is upserted on every intake submission, keyed by email. Rows are
// never deleted.
type Donor struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	Email          string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	FirstName      string       `json:"first_name" gorm:"type:text;not null"`
	LastName       string       `json:"last_name" gorm:"type:text;not null"`
	Phone          string       `json:"phone" gorm:"type:text;not null"`
	DocumentType   string       `json:"document_type" gorm:"type:varchar(10);not null"`
	DocumentNumber string       `json:"document_number" gorm:"type:text;not null"`
	City           string       `json:"city" gorm:"type:text;not null"`
	WantsUpdates   bool         `json:"wants_updates" gorm:"default:false"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null"`
}

func (Donor) TableName() string { return "donors" }
