package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"elearning-backend/internal/client"
	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"
	"elearning-backend/internal/server"
	"elearning-backend/internal/service"
	"elearning-backend/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const secret = "server-test-secret"

type memoryGateway struct {
	mu      sync.Mutex
	intents map[string]*client.Intent
}

func (g *memoryGateway) CreateIntent(_ context.Context, req client.IntentRequest) (*client.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := fmt.Sprintf("pi_%d", len(g.intents)+1)
	g.intents[id] = &client.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       client.IntentStatusPending,
		RawStatus:    "requires_payment_method",
		Amount:       req.AmountMinorUnits,
		Currency:     req.Currency,
	}
	out := *g.intents[id]
	return &out, nil
}

func (g *memoryGateway) RetrieveIntent(_ context.Context, id string) (*client.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", id)
	}
	out := *intent
	return &out, nil
}

func (g *memoryGateway) ParseWebhook(context.Context, http.Header, []byte) (*client.WebhookEvent, error) {
	return nil, fmt.Errorf("webhooks not supported")
}

func (g *memoryGateway) pay(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.intents[id].Status = client.IntentStatusSucceeded
	g.intents[id].RawStatus = "succeeded"
}

type fixture struct {
	db      *gorm.DB
	gateway *memoryGateway
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	gateway := &memoryGateway{intents: map[string]*client.Intent{}}
	logger := zap.NewNop()
	cache := client.NopCache{}

	userRepo := repository.NewUserRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), client.NopMailer{}, logger)
	orders := service.NewOrderService(
		db,
		gateway,
		cache,
		repository.NewOrderRepository(db),
		userRepo,
		repository.NewCourseRepository(db),
		repository.NewWebhookEventRepository(db),
		notifications,
		service.OrderSettings{Currency: "INR", PublishableKey: "pk_test_abc", CacheTTL: time.Minute},
		logger,
	)
	users := service.NewUserService(userRepo, cache, time.Minute, logger)

	srv := server.NewServer(orders, users, notifications, secret, logger)
	return &fixture{db: db, gateway: gateway, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, user *model.User, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": user.ID})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: signed})
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPublishableKeyIsPublic(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/v1/payment/stripepublishablekey", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pk_test_abc", body["publishableKey"])
}

func TestRoutesRequireLogin(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/v1/create-payment-intent", nil, `{"courseId":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "alice")
	admin := testutil.CreateUser(t, f.db, "root")
	require.NoError(t, f.db.Model(admin).Update("role", model.RoleAdmin).Error)

	code, _ := f.do(t, http.MethodGet, "/api/v1/get-orders", user, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, body := f.do(t, http.MethodGet, "/api/v1/get-orders", admin, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["orders"])
}

func TestPurchaseOverHTTP(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "alice")
	course := testutil.CreateCourse(t, f.db, "Go Basics", "10.00")

	code, body := f.do(t, http.MethodPost, "/api/v1/create-payment-intent", user,
		fmt.Sprintf(`{"courseId":%q}`, course.ID))
	require.Equal(t, http.StatusCreated, code)
	orderID := body["orderId"].(string)
	intentID := strings.TrimSuffix(body["clientSecret"].(string), "_secret")

	confirm := fmt.Sprintf(`{"paymentIntentId":%q,"orderId":%q}`, intentID, orderID)

	code, body = f.do(t, http.MethodPost, "/api/v1/confirm-order", user, confirm)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "payment not completed. status: requires_payment_method", body["message"])

	f.gateway.pay(intentID)

	code, body = f.do(t, http.MethodPost, "/api/v1/confirm-order", user, confirm)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["order"].(map[string]any)["status"])

	code, body = f.do(t, http.MethodPost, "/api/v1/confirm-order", user, confirm)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order already completed", body["message"])

	code, body = f.do(t, http.MethodGet, "/api/v1/get-order/"+orderID, user, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1000), body["order"].(map[string]any)["totalAmount"])

	code, body = f.do(t, http.MethodGet, "/api/v1/get-user-orders", user, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["orders"], 1)

	code, body = f.do(t, http.MethodGet, "/api/v1/notifications", user, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["notifications"], 1)

	code, _ = f.do(t, http.MethodPost, "/api/v1/create-payment-intent", user,
		fmt.Sprintf(`{"courseId":%q}`, course.ID))
	assert.Equal(t, http.StatusConflict, code)

	assert.Equal(t, int64(1), testutil.ReloadCourse(t, f.db, course.ID).Purchased)
}
