package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"elearning-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

func newTestStripeGateway(t *testing.T, handler http.HandlerFunc) PaymentGateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})

	return NewStripeGateway(&config.Stripe{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"},
		&stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1000", r.PostForm.Get("amount"))
		assert.Equal(t, "inr", r.PostForm.Get("currency"))
		assert.Equal(t, "course-1", r.PostForm.Get("metadata[courseId]"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "pi_123",
			"object":        "payment_intent",
			"client_secret": "pi_123_secret_abc",
			"status":        "requires_payment_method",
			"amount":        1000,
			"currency":      "inr",
		})
	})

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		AmountMinorUnits: 1000,
		Currency:         "INR",
		Description:      "Export of digital education service: Go",
		Metadata:         map[string]string{"courseId": "course-1", "userId": "user-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, IntentStatusPending, intent.Status)
	assert.Equal(t, "requires_payment_method", intent.RawStatus)
}

func TestStripeGateway_RetrieveIntent(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "pi_123",
			"object":   "payment_intent",
			"status":   "succeeded",
			"amount":   1000,
			"currency": "inr",
		})
	})

	intent, err := gw.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())
	assert.EqualValues(t, 1000, intent.Amount)
	assert.Equal(t, "inr", intent.Currency)
}

func TestStripeGateway_RetrieveIntentError(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such payment_intent"}}`))
	})

	_, err := gw.RetrieveIntent(context.Background(), "pi_missing")
	assert.Error(t, err)
}

func TestStripeIntentStatus(t *testing.T) {
	tests := []struct {
		in   stripe.PaymentIntentStatus
		want IntentStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, IntentStatusSucceeded},
		{stripe.PaymentIntentStatusCanceled, IntentStatusFailed},
		{stripe.PaymentIntentStatusProcessing, IntentStatusPending},
		{stripe.PaymentIntentStatusRequiresAction, IntentStatusPending},
		{stripe.PaymentIntentStatus("mystery"), IntentStatus("")},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, stripeIntentStatus(tt.in))
		})
	}
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	gw := NewStripeGateway(&config.Stripe{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"}, nil)

	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_123", "object": "payment_intent", "status": "succeeded"}}
	}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	headers := http.Header{}
	headers.Set("Stripe-Signature", signed.Header)

	event, err := gw.ParseWebhook(context.Background(), headers, signed.Payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "pi_123", event.IntentID)
	assert.True(t, event.Succeeded)

	headers.Set("Stripe-Signature", "t=1,v1=bogus")
	_, err = gw.ParseWebhook(context.Background(), headers, signed.Payload)
	assert.Error(t, err)
}
