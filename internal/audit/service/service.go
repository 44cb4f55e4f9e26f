package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/causabona/donare/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

// Record appends one audit entry. Audit writes are best-effort for
// callers that treat them as optional; those callers ignore the error
// after logging it.
func (s *Service) Record(ctx context.Context, action string, subscriptionID *snowflake.ID, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := &auditdomain.AuditLog{
		ID:             s.genID.Generate(),
		Action:         action,
		SubscriptionID: subscriptionID,
		Details:        payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Error(err))
		return err
	}
	return nil
}
