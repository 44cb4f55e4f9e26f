package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/clock"
	"github.com/causabona/donare/internal/dates"
	"github.com/causabona/donare/internal/money"
	"github.com/causabona/donare/internal/observability"
	paymentdomain "github.com/causabona/donare/internal/payment/domain"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	"github.com/causabona/donare/internal/wompi"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	env     wompi.Environment
	metrics *observability.Metrics

	subscriptionRepo subscriptiondomain.Repository
	paymentRepo      paymentdomain.Repository
	eventRepo        paymentdomain.EventRepository
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Env     wompi.Environment
	Metrics *observability.Metrics

	SubscriptionRepo subscriptiondomain.Repository
	PaymentRepo      paymentdomain.Repository
	EventRepo        paymentdomain.EventRepository
}

func NewService(p Params) *Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("webhook.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		env:              p.Env,
		metrics:          p.Metrics,
		subscriptionRepo: p.SubscriptionRepo,
		paymentRepo:      p.PaymentRepo,
		eventRepo:        p.EventRepo,
	}
}

type Result struct {
	TransactionID string
	Status        string
	Duplicate     bool
	Matched       bool
}

// wompiEvent tolerates both snake_case and camelCase field spellings the
// gateway has used across API versions.
type wompiEvent struct {
	Event string `json:"event"`
	Data  struct {
		Transaction *wompiTransaction `json:"transaction"`
	} `json:"data"`
}

type wompiTransaction struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	AmountInCents     *int64          `json:"amount_in_cents"`
	AmountInCentsAlt  *int64          `json:"amountInCents"`
	Currency          string          `json:"currency"`
	Reference         string          `json:"reference"`
	PaymentMethodType string          `json:"payment_method_type"`
	MethodTypeAlt     string          `json:"paymentMethodType"`
	PaymentMethod     *wompiTxMethod  `json:"payment_method"`
	PaymentMethodAlt  *wompiTxMethod  `json:"paymentMethod"`
}

type wompiTxMethod struct {
	Type  string         `json:"type"`
	Extra map[string]any `json:"extra"`
}

func (t *wompiTransaction) amountInCents() *int64 {
	if t.AmountInCents != nil {
		return t.AmountInCents
	}
	return t.AmountInCentsAlt
}

func (t *wompiTransaction) methodType() string {
	if t.PaymentMethodType != "" {
		return t.PaymentMethodType
	}
	return t.MethodTypeAlt
}

func (t *wompiTransaction) paymentSourceID() string {
	method := t.PaymentMethod
	if method == nil {
		method = t.PaymentMethodAlt
	}
	if method == nil || method.Extra == nil {
		return ""
	}
	if id := extraString(method.Extra, "payment_source_id"); id != "" {
		return id
	}
	return extraString(method.Extra, "token")
}

func extraString(extra map[string]any, key string) string {
	switch value := extra[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		if value == 0 {
			return ""
		}
		return strconv.FormatInt(int64(value), 10)
	}
	return ""
}

// HandleEvent runs the full reconciliation sequence: authenticate, parse,
// log the sanitized event, upsert the payment, and advance the matched
// subscription's state. Signature and parse failures return the sentinel
// errors above; everything after authentication that touches storage is
// surfaced, except the benign duplicate-event conflict.
func (s *Service) HandleEvent(ctx context.Context, rawBody []byte, signatureHeader string) (Result, error) {
	if len(rawBody) == 0 {
		return Result{}, ErrInvalidPayload
	}
	secret := strings.TrimSpace(s.env.EventsSecret)
	if secret == "" {
		return Result{}, ErrMissingSecret
	}

	if err := VerifySignature(secret, rawBody, signatureHeader, s.clock.Now()); err != nil {
		s.metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return Result{}, err
	}

	var event wompiEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return Result{}, ErrInvalidPayload
	}

	result := Result{}
	tx := event.Data.Transaction
	if tx != nil {
		result.TransactionID = tx.ID
		result.Status = strings.ToLower(strings.TrimSpace(tx.Status))
	}

	duplicate, err := s.logEvent(ctx, event, tx)
	if err != nil {
		return Result{}, fmt.Errorf("webhook: storing event: %w", err)
	}
	result.Duplicate = duplicate
	if duplicate {
		s.log.Info("duplicate webhook event", zap.String("transaction_id", result.TransactionID))
		s.metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
	}

	if tx == nil || strings.TrimSpace(tx.ID) == "" {
		// Acknowledged and logged; nothing to reconcile.
		s.metrics.WebhookEvents.WithLabelValues("processed").Inc()
		return result, nil
	}

	sub, err := s.resolveSubscription(ctx, tx)
	if err != nil {
		return Result{}, fmt.Errorf("webhook: resolving subscription: %w", err)
	}
	result.Matched = sub != nil

	if err := s.upsertPayment(ctx, tx, sub, result.Status); err != nil {
		return Result{}, fmt.Errorf("webhook: saving payment: %w", err)
	}

	if sub != nil {
		if err := s.applyTransition(ctx, sub, tx.ID, result.Status); err != nil {
			return Result{}, fmt.Errorf("webhook: updating subscription: %w", err)
		}
	}

	s.metrics.WebhookEvents.WithLabelValues("processed").Inc()
	return result, nil
}

// logEvent appends a sanitized copy of the event. Only transaction
// id/status/reference/amount/currency/method survive; cardholder and
// customer fields never reach storage.
func (s *Service) logEvent(ctx context.Context, event wompiEvent, tx *wompiTransaction) (bool, error) {
	sanitized := map[string]any{
		"event":     event.Event,
		"timestamp": s.clock.Now().Format(time.RFC3339),
	}
	var txID *string
	if tx != nil && strings.TrimSpace(tx.ID) != "" {
		id := tx.ID
		txID = &id
		sanitized["transaction"] = map[string]any{
			"id":                  tx.ID,
			"status":              tx.Status,
			"reference":           tx.Reference,
			"amount_in_cents":     tx.amountInCents(),
			"currency":            tx.Currency,
			"payment_method_type": tx.methodType(),
		}
	}

	payload, err := json.Marshal(sanitized)
	if err != nil {
		return false, err
	}

	record := &paymentdomain.WebhookEvent{
		ID:            s.genID.Generate(),
		TransactionID: txID,
		EventType:     event.Event,
		Payload:       payload,
		ReceivedAt:    s.clock.Now(),
	}
	err = s.eventRepo.Insert(ctx, nil, record)
	if errors.Is(err, paymentdomain.ErrDuplicateEvent) {
		return true, nil
	}
	return false, err
}

// resolveSubscription matches by stored payment source first, then by the
// checkout reference.
func (s *Service) resolveSubscription(ctx context.Context, tx *wompiTransaction) (*subscriptiondomain.Subscription, error) {
	if sourceID := tx.paymentSourceID(); sourceID != "" {
		sub, err := s.subscriptionRepo.FindByPaymentSourceID(ctx, nil, sourceID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if reference := strings.TrimSpace(tx.Reference); reference != "" {
		return s.subscriptionRepo.FindByReference(ctx, nil, reference)
	}
	return nil, nil
}

func (s *Service) upsertPayment(ctx context.Context, tx *wompiTransaction, sub *subscriptiondomain.Subscription, status string) error {
	currency := strings.ToUpper(strings.TrimSpace(tx.Currency))
	if currency == "" {
		currency = "COP"
	}
	var amount int64
	if cents := tx.amountInCents(); cents != nil {
		amount = money.FromCents(*cents)
	}

	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:                 s.genID.Generate(),
		Amount:             amount,
		Currency:           currency,
		Status:             status,
		WompiTransactionID: tx.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sub != nil {
		payment.SubscriptionID = &sub.ID
	}
	return s.paymentRepo.UpsertByTransactionID(ctx, nil, payment)
}

// applyTransition maps the gateway status onto the subscription.
// Unknown statuses leave the subscription untouched; the payment row
// already recorded the raw status.
func (s *Service) applyTransition(ctx context.Context, sub *subscriptiondomain.Subscription, txID, status string) error {
	switch status {
	case paymentdomain.StatusApproved:
		sub.Status = subscriptiondomain.StatusActive
		s.advanceBillingDate(sub, txID)
	case paymentdomain.StatusDeclined:
		sub.Status = subscriptiondomain.StatusPastDue
	case paymentdomain.StatusPending:
		sub.Status = subscriptiondomain.StatusPending
	default:
		return nil
	}

	sub.UpdatedAt = s.clock.Now()
	return s.subscriptionRepo.Update(ctx, nil, sub)
}

// advanceBillingDate moves next_payment_date one month forward, at most
// once per distinct transaction id. The base is the later of now and the
// current next_payment_date so late webhooks never walk the date
// backwards.
func (s *Service) advanceBillingDate(sub *subscriptiondomain.Subscription, txID string) {
	if sub.HasProcessed(txID) {
		return
	}

	base := s.clock.Now()
	if sub.NextPaymentDate != nil && sub.NextPaymentDate.After(base) {
		base = *sub.NextPaymentDate
	}
	next := dates.AddOneMonth(base)
	sub.NextPaymentDate = &next
	sub.ProcessedTransactionIDs = append(sub.ProcessedTransactionIDs, txID)
}
