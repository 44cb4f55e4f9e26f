package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionMonthlyChargeCreated = "monthly_charge_created"
	ActionMonthlyChargeFailed  = "monthly_charge_failed"
)

// AuditLog is a write-once record of batch-job outcomes.
type AuditLog struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	Action         string         `json:"action" gorm:"type:text;not null;index"`
	SubscriptionID *snowflake.ID  `json:"subscription_id" gorm:"index"`
	Details        datatypes.JSON `json:"details"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
