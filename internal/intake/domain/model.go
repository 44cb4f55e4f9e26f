package domain

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Stage string

const (
	StageDraft   Stage = "draft"
	StageConfirm Stage = "confirm"
)

const (
	StatusDraftSaved          = "draft_saved"
	StatusSubscriptionCreated = "subscription_created"
)

// DonorInput mirrors the wizard's donor form. Validation tags follow the
// form's rules: two-character name minimums, Colombian document types,
// phone with country code.
type DonorInput struct {
	FirstName      string `json:"firstName" validate:"required,min=2"`
	LastName       string `json:"lastName" validate:"required,min=2"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,min=10,phonechars"`
	DocumentType   string `json:"documentType" validate:"required,oneof=CC CE PA NIT"`
	DocumentNumber string `json:"documentNumber" validate:"required,min=5"`
	City           string `json:"city" validate:"required,min=2"`
	WantsUpdates   bool   `json:"wantsUpdates"`
}

// WompiAuthorization carries what the checkout widget returned after a
// confirmed authorization. The widget only reports success, so presence
// of a token means the payment was approved.
type WompiAuthorization struct {
	Token           string `json:"token"`
	PaymentSourceID string `json:"paymentSourceId"`
	Reference       string `json:"reference"`
	MaskedDetails   string `json:"maskedDetails"`
}

type Request struct {
	Stage         Stage               `json:"stage"`
	Donor         DonorInput          `json:"donor"`
	Amount        int64               `json:"amount"`
	PaymentMethod string              `json:"paymentMethod"`
	IsRecurring   *bool               `json:"isRecurring"`
	Wompi         *WompiAuthorization `json:"wompi"`
}

// Recurring defaults to true when the wizard omits the flag.
func (r Request) Recurring() bool {
	if r.IsRecurring == nil {
		return true
	}
	return *r.IsRecurring
}

type Result struct {
	Status         string
	DonorID        snowflake.ID
	SubscriptionID snowflake.ID
	Reference      string
	Recurring      bool
}

type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every rejected field so the wizard can surface
// inline messages.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		fields[i] = issue.Field
	}
	return fmt.Sprintf("intake: invalid fields: %s", strings.Join(fields, ", "))
}
