package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/clock"
	"github.com/causabona/donare/internal/migration"
	"github.com/causabona/donare/internal/observability"
	paymentdomain "github.com/causabona/donare/internal/payment/domain"
	paymentrepository "github.com/causabona/donare/internal/payment/repository"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	subscriptionrepository "github.com/causabona/donare/internal/subscription/repository"
	"github.com/causabona/donare/internal/wompi"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testEventsSecret = "events_secret"

func newTestService(t *testing.T, now time.Time) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:               db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            clock.Fixed(now),
		Env:              wompi.Environment{EventsSecret: testEventsSecret},
		Metrics:          observability.NewMetrics(),
		SubscriptionRepo: subscriptionrepository.Provide(db),
		PaymentRepo:      paymentrepository.Provide(db),
		EventRepo:        paymentrepository.ProvideEvents(db),
	})
	return svc, db
}

func seedSubscription(t *testing.T, db *gorm.DB, now time.Time) *subscriptiondomain.Subscription {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	source := "src_123"
	next := now.Add(-24 * time.Hour)
	sub := &subscriptiondomain.Subscription{
		ID:                   node.Generate(),
		DonorID:              node.Generate(),
		Amount:               50000,
		Currency:             "COP",
		Frequency:            subscriptiondomain.FrequencyMonthly,
		Status:               subscriptiondomain.StatusPending,
		WompiPaymentSourceID: &source,
		Reference:            "ref-abc",
		NextPaymentDate:      &next,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func eventBody(txID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "transaction.updated",
		"data": {
			"transaction": {
				"id": %q,
				"status": %q,
				"amount_in_cents": 5000000,
				"currency": "COP",
				"reference": "ref-abc",
				"payment_method_type": "CARD",
				"payment_method": {
					"type": "CARD",
					"extra": {"payment_source_id": "src_123"}
				}
			}
		}
	}`, txID, status))
}

func TestHandleEventApprovedAdvancesOnce(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)
	sub := seedSubscription(t, db, now)

	body := eventBody("tx-1", "APPROVED")
	header := signHeader(t, testEventsSecret, body, now)

	res, err := svc.HandleEvent(context.Background(), body, header)
	require.NoError(t, err)
	require.Equal(t, "tx-1", res.TransactionID)
	require.Equal(t, "approved", res.Status)
	require.True(t, res.Matched)
	require.False(t, res.Duplicate)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.Equal(t, subscriptiondomain.StatusActive, stored.Status)
	require.NotNil(t, stored.NextPaymentDate)
	// The stored date was in the past, so the new date is one month from now.
	require.True(t, stored.NextPaymentDate.Equal(now.AddDate(0, 1, 0)))
	require.True(t, stored.HasProcessed("tx-1"))

	var payment paymentdomain.Payment
	require.NoError(t, db.Where("wompi_transaction_id = ?", "tx-1").First(&payment).Error)
	require.Equal(t, "approved", payment.Status)
	require.Equal(t, int64(50000), payment.Amount)
	require.Equal(t, sub.ID, *payment.SubscriptionID)

	// Same event delivered again: duplicate, billing date unchanged.
	res, err = svc.HandleEvent(context.Background(), body, header)
	require.NoError(t, err)
	require.True(t, res.Duplicate)

	var after subscriptiondomain.Subscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	require.True(t, after.NextPaymentDate.Equal(*stored.NextPaymentDate))
	require.Len(t, after.ProcessedTransactionIDs, 1)

	var count int64
	require.NoError(t, db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestHandleEventApprovedFutureDateMovesForward(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)
	sub := seedSubscription(t, db, now)

	// An early webhook: next_payment_date is still ten days out. The new
	// date must build on the stored one, not on now.
	future := now.Add(10 * 24 * time.Hour)
	require.NoError(t, db.Model(sub).Update("next_payment_date", future).Error)

	body := eventBody("tx-2", "APPROVED")
	_, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.NoError(t, err)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.True(t, stored.NextPaymentDate.Equal(future.AddDate(0, 1, 0)))
}

func TestHandleEventMatchesByReferenceOnly(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)
	sub := seedSubscription(t, db, now)

	// Checkout transactions carry no payment_method extra; the stored
	// reference is the only way to match them.
	body := []byte(`{
		"event": "transaction.updated",
		"data": {
			"transaction": {
				"id": "tx-ref",
				"status": "APPROVED",
				"amount_in_cents": 5000000,
				"currency": "COP",
				"reference": "ref-abc"
			}
		}
	}`)
	res, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.NoError(t, err)
	require.True(t, res.Matched)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.Equal(t, subscriptiondomain.StatusActive, stored.Status)
	require.True(t, stored.HasProcessed("tx-ref"))

	var payment paymentdomain.Payment
	require.NoError(t, db.Where("wompi_transaction_id = ?", "tx-ref").First(&payment).Error)
	require.Equal(t, sub.ID, *payment.SubscriptionID)
}

func TestHandleEventDeclined(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)
	sub := seedSubscription(t, db, now)
	before := sub.NextPaymentDate.UTC()

	body := eventBody("tx-3", "DECLINED")
	res, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.NoError(t, err)
	require.Equal(t, "declined", res.Status)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.Equal(t, subscriptiondomain.StatusPastDue, stored.Status)
	require.True(t, stored.NextPaymentDate.Equal(before))
}

func TestHandleEventUnknownStatusKeepsSubscription(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)
	sub := seedSubscription(t, db, now)

	body := eventBody("tx-4", "VOIDED")
	res, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.NoError(t, err)
	require.Equal(t, "voided", res.Status)
	require.True(t, res.Matched)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.Equal(t, subscriptiondomain.StatusPending, stored.Status)

	// The raw status still lands on the payment row.
	var payment paymentdomain.Payment
	require.NoError(t, db.Where("wompi_transaction_id = ?", "tx-4").First(&payment).Error)
	require.Equal(t, "voided", payment.Status)
}

func TestHandleEventWithoutTransaction(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, db := newTestService(t, now)

	body := []byte(`{"event": "nofication.test", "data": {}}`)
	res, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.NoError(t, err)
	require.Empty(t, res.TransactionID)
	require.False(t, res.Matched)

	var count int64
	require.NoError(t, db.Model(&paymentdomain.WebhookEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	body := eventBody("tx-5", "APPROVED")
	_, err := svc.HandleEvent(context.Background(), body, signHeader(t, "wrong_secret", body, now))
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.HandleEvent(context.Background(), body, "")
	require.ErrorIs(t, err, ErrMissingSignature)

	_, err = svc.HandleEvent(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestHandleEventMissingSecret(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	svc.env.EventsSecret = ""

	body := eventBody("tx-6", "APPROVED")
	_, err := svc.HandleEvent(context.Background(), body, signHeader(t, testEventsSecret, body, now))
	require.ErrorIs(t, err, ErrMissingSecret)
}
