package client

import (
	"context"
	"errors"
	"net/http"
)

// IntentStatus is the gateway-neutral view of a payment's state.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
)

type IntentRequest struct {
	AmountMinorUnits int64
	Currency         string
	Description      string
	Metadata         map[string]string
	CustomerName     string
}

// Intent is a validated gateway response. RawStatus keeps the provider's own
// status string for diagnostics.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	RawStatus    string
	Amount       int64
	Currency     string
}

func (i *Intent) Succeeded() bool {
	return i.Status == IntentStatusSucceeded
}

// WebhookEvent is a verified gateway notification about an intent.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	// Succeeded is set when the event reports a definitive payment success.
	Succeeded bool
}

var ErrInvalidGatewayResponse = errors.New("invalid payment gateway response")

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	ParseWebhook(ctx context.Context, headers http.Header, payload []byte) (*WebhookEvent, error)
}

func validateIntent(intent *Intent) error {
	if intent == nil || intent.ID == "" {
		return ErrInvalidGatewayResponse
	}
	switch intent.Status {
	case IntentStatusPending, IntentStatusFailed:
		return nil
	case IntentStatusSucceeded:
		// a settled payment must say what was paid
		if intent.Amount <= 0 || intent.Currency == "" {
			return ErrInvalidGatewayResponse
		}
		return nil
	default:
		return ErrInvalidGatewayResponse
	}
}
