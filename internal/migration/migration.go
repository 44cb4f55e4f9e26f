package migration

import (
	auditdomain "github.com/causabona/donare/internal/audit/domain"
	donordomain "github.com/causabona/donare/internal/donor/domain"
	paymentdomain "github.com/causabona/donare/internal/payment/domain"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(func(db *gorm.DB, log *zap.Logger) error {
		log.Info("running schema migration")
		return Run(db)
	}),
)

// Run creates or upgrades the five tables.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&donordomain.Donor{},
		&subscriptiondomain.Subscription{},
		&paymentdomain.Payment{},
		&paymentdomain.WebhookEvent{},
		&auditdomain.AuditLog{},
	)
}
