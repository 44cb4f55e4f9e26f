package charge

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/causabona/donare/internal/audit/domain"
	auditservice "github.com/causabona/donare/internal/audit/service"
	"github.com/causabona/donare/internal/clock"
	"github.com/causabona/donare/internal/dates"
	donordomain "github.com/causabona/donare/internal/donor/domain"
	"github.com/causabona/donare/internal/money"
	"github.com/causabona/donare/internal/observability"
	paymentdomain "github.com/causabona/donare/internal/payment/domain"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	"github.com/causabona/donare/internal/wompi"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway is the slice of the Wompi client the job needs; tests inject a
// fake.
type Gateway interface {
	AcceptanceToken(ctx context.Context) (string, error)
	CreateTransaction(ctx context.Context, txr wompi.TransactionRequest) (wompi.Transaction, error)
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	gateway Gateway
	metrics *observability.Metrics

	subscriptionRepo subscriptiondomain.Repository
	donorRepo        donordomain.Repository
	paymentRepo      paymentdomain.Repository
	audit            *auditservice.Service
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Gateway Gateway
	Metrics *observability.Metrics

	SubscriptionRepo subscriptiondomain.Repository
	DonorRepo        donordomain.Repository
	PaymentRepo      paymentdomain.Repository
	Audit            *auditservice.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("charge.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		gateway:          p.Gateway,
		metrics:          p.Metrics,
		subscriptionRepo: p.SubscriptionRepo,
		donorRepo:        p.DonorRepo,
		paymentRepo:      p.PaymentRepo,
		audit:            p.Audit,
	}
}

type Summary struct {
	Due     int
	Charged int
	Skipped int
	Failed  int
}

// Run charges every due subscription once. Setup failures (the due query,
// the acceptance token) abort the run; failures on an individual
// subscription are written to the audit trail and the batch moves on.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	now := s.clock.Now()

	due, err := s.subscriptionRepo.FindDue(ctx, nil, now)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Due: len(due)}
	if len(due) == 0 {
		s.log.Info("no subscriptions due for charge")
		return summary, nil
	}

	acceptanceToken, err := s.gateway.AcceptanceToken(ctx)
	if err != nil {
		return summary, err
	}

	monthStart := dates.MonthStartUTC(now)
	s.log.Info("processing due subscriptions", zap.Int("count", len(due)))

	for i := range due {
		sub := &due[i]
		outcome := s.chargeOne(ctx, sub, acceptanceToken, monthStart, now)
		switch outcome {
		case outcomeCharged:
			summary.Charged++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
		s.metrics.Charges.WithLabelValues(string(outcome)).Inc()
	}

	s.log.Info("charge run finished",
		zap.Int("due", summary.Due),
		zap.Int("charged", summary.Charged),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

type outcome string

const (
	outcomeCharged outcome = "charged"
	outcomeSkipped outcome = "skipped"
	outcomeFailed  outcome = "failed"
)

func (s *Service) chargeOne(
	ctx context.Context,
	sub *subscriptiondomain.Subscription,
	acceptanceToken string,
	monthStart, now time.Time,
) outcome {
	logger := s.log.With(zap.String("subscription_id", sub.ID.String()))

	if sub.WompiPaymentSourceID == nil || strings.TrimSpace(*sub.WompiPaymentSourceID) == "" {
		logger.Info("skip: missing payment source")
		return outcomeSkipped
	}

	// Re-running the job inside the same month must not double-charge.
	alreadyCharged, err := s.paymentRepo.ExistsSince(ctx, nil, sub.ID, monthStart)
	if err != nil {
		logger.Warn("could not check existing payments", zap.Error(err))
	} else if alreadyCharged {
		logger.Info("skip: already has payment this month")
		return outcomeSkipped
	}

	reference := s.chargeReference(sub, now)

	var customerEmail string
	if donor, err := s.donorRepo.FindByID(ctx, nil, sub.DonorID); err != nil {
		logger.Warn("could not load donor", zap.Error(err))
	} else if donor != nil {
		customerEmail = donor.Email
	}

	currency := sub.Currency
	if currency == "" {
		currency = "COP"
	}

	tx, err := s.gateway.CreateTransaction(ctx, wompi.TransactionRequest{
		AcceptanceToken: acceptanceToken,
		AmountInCents:   money.ToCents(sub.Amount),
		Currency:        currency,
		CustomerEmail:   customerEmail,
		PaymentSourceID: *sub.WompiPaymentSourceID,
		Reference:       reference,
	})
	if err != nil {
		logger.Warn("charge failed", zap.Error(err))
		_ = s.audit.Record(ctx, auditdomain.ActionMonthlyChargeFailed, &sub.ID, map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
		return outcomeFailed
	}

	payment := &paymentdomain.Payment{
		ID:                 s.genID.Generate(),
		SubscriptionID:     &sub.ID,
		Amount:             sub.Amount,
		Currency:           currency,
		Status:             tx.Status,
		WompiTransactionID: tx.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.paymentRepo.Insert(ctx, nil, payment); err != nil {
		logger.Warn("payment insert failed", zap.String("transaction_id", tx.ID), zap.Error(err))
	}

	_ = s.audit.Record(ctx, auditdomain.ActionMonthlyChargeCreated, &sub.ID, map[string]any{
		"reference": reference,
		"txId":      tx.ID,
		"status":    tx.Status,
	})

	logger.Info("charge created",
		zap.String("transaction_id", tx.ID),
		zap.String("status", tx.Status),
		zap.String("amount", money.FormatCOP(sub.Amount)))
	return outcomeCharged
}

// chargeReference scopes the gateway reference to subscription and
// year-month so retries within a month share one reference.
func (s *Service) chargeReference(sub *subscriptiondomain.Subscription, now time.Time) string {
	yyyymm := dates.YearMonth(now)
	if strings.TrimSpace(sub.Reference) != "" {
		return sub.Reference + "-" + yyyymm
	}
	return "SUB-" + sub.ID.String() + "-" + yyyymm
}
