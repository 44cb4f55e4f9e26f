package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/clock"
	"github.com/causabona/donare/internal/config"
	"github.com/causabona/donare/internal/dates"
	donordomain "github.com/causabona/donare/internal/donor/domain"
	"github.com/causabona/donare/internal/intake/domain"
	"github.com/causabona/donare/internal/money"
	"github.com/causabona/donare/internal/observability"
	paymentdomain "github.com/causabona/donare/internal/payment/domain"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^[0-9+\-\s]+$`)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.Config
	metrics *observability.Metrics

	donorRepo        donordomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	paymentRepo      paymentdomain.Repository

	validate *validator.Validate
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     config.Config
	Metrics *observability.Metrics

	DonorRepo        donordomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	PaymentRepo      paymentdomain.Repository
}

func NewService(p Params) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("phonechars", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return &Service{
		db:               p.DB,
		log:              p.Log.Named("intake.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		cfg:              p.Cfg,
		metrics:          p.Metrics,
		donorRepo:        p.DonorRepo,
		subscriptionRepo: p.SubscriptionRepo,
		paymentRepo:      p.PaymentRepo,
		validate:         validate,
	}
}

// Submit runs one intake stage. Draft upserts the donor and stops there:
// no subscription or payment row may exist before the donor confirms.
// Confirm creates the subscription and, when the widget returned a
// token, the initial approved payment.
func (s *Service) Submit(ctx context.Context, req domain.Request) (domain.Result, error) {
	if err := s.validateRequest(req); err != nil {
		return domain.Result{}, err
	}

	now := s.clock.Now()
	donor := &donordomain.Donor{
		ID:             s.genID.Generate(),
		Email:          strings.ToLower(strings.TrimSpace(req.Donor.Email)),
		FirstName:      strings.TrimSpace(req.Donor.FirstName),
		LastName:       strings.TrimSpace(req.Donor.LastName),
		Phone:          strings.TrimSpace(req.Donor.Phone),
		DocumentType:   req.Donor.DocumentType,
		DocumentNumber: strings.TrimSpace(req.Donor.DocumentNumber),
		City:           strings.TrimSpace(req.Donor.City),
		WantsUpdates:   req.Donor.WantsUpdates,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if req.Stage == domain.StageDraft {
		stored, err := s.donorRepo.UpsertByEmail(ctx, nil, donor)
		if err != nil {
			return domain.Result{}, err
		}
		s.metrics.Donations.WithLabelValues("draft").Inc()
		return domain.Result{
			Status:    domain.StatusDraftSaved,
			DonorID:   stored.ID,
			Recurring: req.Recurring(),
		}, nil
	}

	var result domain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.donorRepo.UpsertByEmail(ctx, tx, donor)
		if err != nil {
			return err
		}

		sub := s.buildSubscription(req, stored.ID, now)
		if err := s.subscriptionRepo.Insert(ctx, tx, sub); err != nil {
			return err
		}

		// The widget only signals success on a confirmed authorization,
		// so a present token means the first payment went through.
		if req.Wompi != nil && strings.TrimSpace(req.Wompi.Token) != "" {
			initial := &paymentdomain.Payment{
				ID:                 s.genID.Generate(),
				SubscriptionID:     &sub.ID,
				Amount:             req.Amount,
				Currency:           sub.Currency,
				Status:             paymentdomain.StatusApproved,
				WompiTransactionID: strings.TrimSpace(req.Wompi.Reference),
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := s.paymentRepo.Insert(ctx, tx, initial); err != nil {
				return err
			}
		}

		result = domain.Result{
			Status:         domain.StatusSubscriptionCreated,
			DonorID:        stored.ID,
			SubscriptionID: sub.ID,
			Reference:      sub.Reference,
			Recurring:      req.Recurring(),
		}
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}

	s.metrics.Donations.WithLabelValues("confirm").Inc()
	s.log.Info("subscription created",
		zap.String("subscription_id", result.SubscriptionID.String()),
		zap.String("amount", money.FormatCOP(req.Amount)),
		zap.Bool("recurring", result.Recurring))
	return result, nil
}

func (s *Service) buildSubscription(req domain.Request, donorID snowflake.ID, now time.Time) *subscriptiondomain.Subscription {
	frequency := subscriptiondomain.FrequencyOneTime
	var nextPayment *time.Time
	if req.Recurring() {
		frequency = subscriptiondomain.FrequencyMonthly
		next := dates.AddOneMonth(now)
		nextPayment = &next
	}

	var sourceID *string
	var masked string
	if req.Wompi != nil {
		source := strings.TrimSpace(req.Wompi.PaymentSourceID)
		if source == "" {
			source = strings.TrimSpace(req.Wompi.Token)
		}
		if source != "" {
			sourceID = &source
		}
		masked = req.Wompi.MaskedDetails
	}

	return &subscriptiondomain.Subscription{
		ID:                   s.genID.Generate(),
		DonorID:              donorID,
		Amount:               req.Amount,
		Currency:             s.cfg.DefaultCurrency,
		Frequency:            frequency,
		Status:               subscriptiondomain.StatusActive,
		PaymentMethodType:    req.PaymentMethod,
		WompiPaymentSourceID: sourceID,
		WompiMaskedDetails:   masked,
		Reference:            uuid.NewString(),
		NextPaymentDate:      nextPayment,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (s *Service) validateRequest(req domain.Request) error {
	var issues []domain.FieldIssue

	if req.Stage != domain.StageDraft && req.Stage != domain.StageConfirm {
		issues = append(issues, domain.FieldIssue{Field: "stage", Message: "stage must be draft or confirm"})
	}

	if err := s.validate.Struct(req.Donor); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				issues = append(issues, domain.FieldIssue{
					Field:   jsonField(fe),
					Message: fieldMessage(fe),
				})
			}
		} else {
			issues = append(issues, domain.FieldIssue{Field: "donor", Message: "invalid donor payload"})
		}
	}

	if req.Amount < s.cfg.MinDonationAmount {
		issues = append(issues, domain.FieldIssue{
			Field:   "amount",
			Message: fmt.Sprintf("minimum amount is %s", money.FormatCOP(s.cfg.MinDonationAmount)),
		})
	}

	if req.PaymentMethod != "" && req.PaymentMethod != "card" && req.PaymentMethod != "nequi" {
		issues = append(issues, domain.FieldIssue{Field: "paymentMethod", Message: "payment method must be card or nequi"})
	}

	if len(issues) > 0 {
		return &domain.ValidationError{Issues: issues}
	}
	return nil
}

func jsonField(fe validator.FieldError) string {
	field := fe.Field()
	if len(field) > 0 {
		return strings.ToLower(field[:1]) + field[1:]
	}
	return field
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "email":
		return "invalid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "phonechars":
		return "only digits and + - symbols are allowed"
	default:
		return "invalid value"
	}
}
