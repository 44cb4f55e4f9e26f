package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyOneTime Frequency = "one_time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusPastDue Status = "past_due"
	StatusPending Status = "pending"
)

// Subscription is created once at intake confirm. The webhook workflow
// mutates status, next_payment_date and the processed-id list; the
// recurring-charge job only reads it.
type Subscription struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	DonorID           snowflake.ID `json:"donor_id" gorm:"not null;index"`
	Amount            int64        `json:"amount" gorm:"not null"`
	Currency          string       `json:"currency" gorm:"type:varchar(3);not null"`
	Frequency         Frequency    `json:"frequency" gorm:"type:varchar(20);not null"`
	Status            Status       `json:"status" gorm:"type:varchar(20);not null;index"`
	PaymentMethodType string       `json:"payment_method_type" gorm:"type:varchar(20)"`

	WompiPaymentSourceID *string `json:"wompi_payment_source_id" gorm:"type:text;index"`
	WompiMaskedDetails   string  `json:"wompi_masked_details" gorm:"type:text"`

	Reference       string     `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	NextPaymentDate *time.Time `json:"next_payment_date" gorm:"index"`

	// Gateway transaction ids that already advanced next_payment_date.
	// Guards against a webhook redelivery moving the billing date twice.
	ProcessedTransactionIDs datatypes.JSONSlice[string] `json:"processed_transaction_ids"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// HasProcessed reports whether txID already advanced this subscription's
// billing date.
func (s *Subscription) HasProcessed(txID string) bool {
	for _, id := range s.ProcessedTransactionIDs {
		if id == txID {
			return true
		}
	}
	return false
}
