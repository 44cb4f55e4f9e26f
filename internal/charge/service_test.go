package charge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/causabona/donare/internal/audit/domain"
	auditservice "github.com/causabona/donare/internal/audit/service"
	"github.com/causabona/donare/internal/clock"
	donordomain "github.com/causabona/donare/internal/donor/domain"
	donorrepository "github.com/causabona/donare/internal/donor/repository"
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

type fakeGateway struct {
	acceptanceErr error
	txErr         map[string]error
	requests      []wompi.TransactionRequest
}

func (f *fakeGateway) AcceptanceToken(ctx context.Context) (string, error) {
	if f.acceptanceErr != nil {
		return "", f.acceptanceErr
	}
	return "acceptance-token", nil
}

func (f *fakeGateway) CreateTransaction(ctx context.Context, txr wompi.TransactionRequest) (wompi.Transaction, error) {
	f.requests = append(f.requests, txr)
	if err := f.txErr[txr.PaymentSourceID]; err != nil {
		return wompi.Transaction{}, err
	}
	return wompi.Transaction{ID: "tx-" + txr.PaymentSourceID, Status: "pending"}, nil
}

func newTestService(t *testing.T, now time.Time, gateway Gateway) (*Service, *gorm.DB) {
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
		Gateway:          gateway,
		Metrics:          observability.NewMetrics(),
		SubscriptionRepo: subscriptionrepository.Provide(db),
		DonorRepo:        donorrepository.Provide(db),
		PaymentRepo:      paymentrepository.Provide(db),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
		}),
	})
	return svc, db
}

var seedNode, _ = snowflake.NewNode(2)

func seedDue(t *testing.T, db *gorm.DB, now time.Time, sourceID string) *subscriptiondomain.Subscription {
	t.Helper()

	node := seedNode

	donor := &donordomain.Donor{
		ID:             node.Generate(),
		Email:          sourceID + "@example.com",
		FirstName:      "Ana",
		LastName:       "Pérez",
		Phone:          "+573001234567",
		DocumentType:   "CC",
		DocumentNumber: "1020304050",
		City:           "Bogotá",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(donor).Error)

	due := now.Add(-time.Hour)
	var source *string
	if sourceID != "" {
		source = &sourceID
	}
	sub := &subscriptiondomain.Subscription{
		ID:                   node.Generate(),
		DonorID:              donor.ID,
		Amount:               50000,
		Currency:             "COP",
		Frequency:            subscriptiondomain.FrequencyMonthly,
		Status:               subscriptiondomain.StatusActive,
		WompiPaymentSourceID: source,
		Reference:            "ref-" + sourceID + node.Generate().String(),
		NextPaymentDate:      &due,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestRunNoDueSubscriptions(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	svc, _ := newTestService(t, now, gateway)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
	require.Empty(t, gateway.requests)
}

func TestRunChargesDueSubscription(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	svc, db := newTestService(t, now, gateway)
	sub := seedDue(t, db, now, "src_1")

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Due: 1, Charged: 1}, summary)

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	require.Equal(t, "acceptance-token", req.AcceptanceToken)
	require.Equal(t, int64(5000000), req.AmountInCents)
	require.Equal(t, "COP", req.Currency)
	require.Equal(t, "src_1@example.com", req.CustomerEmail)
	require.Equal(t, sub.Reference+"-202603", req.Reference)

	var payment paymentdomain.Payment
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).First(&payment).Error)
	require.Equal(t, "pending", payment.Status)
	require.Equal(t, "tx-src_1", payment.WompiTransactionID)

	var audit auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", auditdomain.ActionMonthlyChargeCreated).First(&audit).Error)
	require.Equal(t, sub.ID, *audit.SubscriptionID)
}

func TestRunSkipsAlreadyChargedThisMonth(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	svc, db := newTestService(t, now, gateway)
	sub := seedDue(t, db, now, "src_1")

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	existing := &paymentdomain.Payment{
		ID:             node.Generate(),
		SubscriptionID: &sub.ID,
		Amount:         50000,
		Currency:       "COP",
		Status:         paymentdomain.StatusApproved,
		CreatedAt:      now.Add(-48 * time.Hour), // inside the current month
		UpdatedAt:      now.Add(-48 * time.Hour),
	}
	require.NoError(t, db.Create(existing).Error)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Due: 1, Skipped: 1}, summary)
	require.Empty(t, gateway.requests)
}

func TestRunSkipsMissingPaymentSource(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{}
	svc, db := newTestService(t, now, gateway)

	// FindDue filters NULL sources in SQL; an empty string slips past it
	// and must be skipped in the loop.
	empty := ""
	sub := seedDue(t, db, now, "src_1")
	require.NoError(t, db.Model(sub).Update("wompi_payment_source_id", &empty).Error)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Due: 1, Skipped: 1}, summary)
	require.Empty(t, gateway.requests)
}

func TestRunContinuesAfterGatewayFailure(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{
		txErr: map[string]error{"src_1": errors.New("card declined hint=INPUT_VALIDATION_ERROR")},
	}
	svc, db := newTestService(t, now, gateway)
	failing := seedDue(t, db, now, "src_1")
	seedDue(t, db, now, "src_2")

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Due: 2, Charged: 1, Failed: 1}, summary)
	require.Len(t, gateway.requests, 2)

	var failure auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", auditdomain.ActionMonthlyChargeFailed).First(&failure).Error)
	require.Equal(t, failing.ID, *failure.SubscriptionID)

	// Only the successful charge produced a payment row.
	var payments int64
	require.NoError(t, db.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	require.Equal(t, int64(1), payments)
}

func TestRunAbortsOnAcceptanceTokenFailure(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{acceptanceErr: errors.New("merchant lookup failed")}
	svc, db := newTestService(t, now, gateway)
	seedDue(t, db, now, "src_1")

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, gateway.requests)
}
