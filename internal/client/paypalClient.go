package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"elearning-backend/internal/config"

	"github.com/shopspring/decimal"
)

type paypalGatewayImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCapture struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount paypalAmount `json:"amount"`
}

type paypalPayments struct {
	Captures []paypalCapture `json:"captures"`
}

type paypalPurchaseUnit struct {
	ReferenceID string          `json:"reference_id,omitempty"`
	CustomID    string          `json:"custom_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      paypalAmount    `json:"amount"`
	Payments    *paypalPayments `json:"payments,omitempty"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Links         []paypalLink         `json:"links"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// NewPaypalGateway maps PayPal checkout orders onto payment intents. The
// approval URL plays the role of the client secret.
func NewPaypalGateway(paypalCfg *config.Paypal) PaymentGateway {
	return &paypalGatewayImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
	}
}

func (c *paypalGatewayImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal oauth error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}

	return res.AccessToken, nil
}

// do sends an authenticated JSON request and decodes a 2xx response into out.
func (c *paypalGatewayImpl) do(ctx context.Context, method, path string, payload any, requestID string, out any) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}

func (c *paypalGatewayImpl) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	currency := strings.ToUpper(req.Currency)
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []paypalPurchaseUnit{
			{
				ReferenceID: req.Metadata["courseId"],
				CustomID:    req.Metadata["userId"],
				Description: req.Description,
				Amount: paypalAmount{
					CurrencyCode: currency,
					Value:        decimal.New(req.AmountMinorUnits, -2).StringFixed(2),
				},
			},
		},
	}

	var result paypalOrder
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, "", &result); err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}

	intent := &Intent{
		ID:           result.ID,
		ClientSecret: extractApproveURL(result.Links),
		Status:       paypalIntentStatus(result.Status),
		RawStatus:    result.Status,
		Amount:       req.AmountMinorUnits,
		Currency:     currency,
	}
	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// RetrieveIntent captures orders the buyer has approved, so a confirmed
// PayPal order reports success the same way a Stripe intent does.
// PayPal-Request-Id makes the capture safe to repeat. Callers must only pass
// an id they have already matched to their own order: retrieving captures.
func (c *paypalGatewayImpl) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	orderPath := "/v2/checkout/orders/" + url.PathEscape(intentID)

	var order paypalOrder
	if err := c.do(ctx, http.MethodGet, orderPath, nil, "", &order); err != nil {
		return nil, fmt.Errorf("paypal get order: %w", err)
	}

	result := order
	if order.Status == "APPROVED" {
		result = paypalOrder{}
		if err := c.do(ctx, http.MethodPost, orderPath+"/capture", nil, "capture-"+intentID, &result); err != nil {
			return nil, fmt.Errorf("paypal capture order: %w", err)
		}
	}

	intent := &Intent{
		ID:        result.ID,
		Status:    paypalIntentStatus(result.Status),
		RawStatus: result.Status,
	}

	amount, ok := settledAmount(result.PurchaseUnits)
	if !ok {
		amount, ok = settledAmount(order.PurchaseUnits)
	}
	if ok {
		value, err := decimal.NewFromString(amount.Value)
		if err != nil {
			return nil, fmt.Errorf("paypal amount %q: %w", amount.Value, ErrInvalidGatewayResponse)
		}
		intent.Amount = value.Shift(2).Round(0).IntPart()
		intent.Currency = amount.CurrencyCode
	}

	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// settledAmount prefers the captured amount over the ordered one. Capture
// responses only report money under payments.captures.
func settledAmount(units []paypalPurchaseUnit) (paypalAmount, bool) {
	if len(units) == 0 {
		return paypalAmount{}, false
	}
	unit := units[0]
	if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
		if captured := unit.Payments.Captures[0].Amount; captured.Value != "" {
			return captured, true
		}
	}
	if unit.Amount.Value != "" {
		return unit.Amount, true
	}
	return paypalAmount{}, false
}

func (c *paypalGatewayImpl) ParseWebhook(ctx context.Context, headers http.Header, payload []byte) (*WebhookEvent, error) {
	verification := map[string]interface{}{
		"auth_algo":         headers.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          headers.Get("PAYPAL-CERT-URL"),
		"transmission_id":   headers.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  headers.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": headers.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	var verified struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", verification, "", &verified); err != nil {
		return nil, fmt.Errorf("verify paypal webhook: %w", err)
	}
	if verified.VerificationStatus != "SUCCESS" {
		return nil, fmt.Errorf("verify paypal webhook: status %s", verified.VerificationStatus)
	}

	var event paypalWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: event.EventType}
	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		out.IntentID = event.Resource.SupplementaryData.RelatedIDs.OrderID
		out.Succeeded = out.IntentID != ""
	case "CHECKOUT.ORDER.APPROVED":
		out.IntentID = event.Resource.ID
	}

	return out, nil
}

func paypalIntentStatus(status string) IntentStatus {
	switch status {
	case "COMPLETED":
		return IntentStatusSucceeded
	case "VOIDED":
		return IntentStatusFailed
	case "CREATED", "SAVED", "APPROVED", "PAYER_ACTION_REQUIRED":
		return IntentStatusPending
	default:
		return IntentStatus("")
	}
}

func extractApproveURL(links []paypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}
