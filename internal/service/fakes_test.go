package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"elearning-backend/internal/client"
	"elearning-backend/internal/repository"
	"elearning-backend/internal/service"
	"elearning-backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu            sync.Mutex
	seq           int
	intents       map[string]*client.Intent
	lastRequest   client.IntentRequest
	createErr     error
	retrieveErr   error
	retrieveCalls int
	event         *client.WebhookEvent
	webhookErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*client.Intent{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req client.IntentRequest) (*client.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastRequest = req
	if g.createErr != nil {
		return nil, g.createErr
	}

	g.seq++
	intent := &client.Intent{
		ID:           fmt.Sprintf("pi_%d", g.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", g.seq),
		Status:       client.IntentStatusPending,
		RawStatus:    "requires_payment_method",
		Amount:       req.AmountMinorUnits,
		Currency:     req.Currency,
	}
	g.intents[intent.ID] = intent

	out := *intent
	return &out, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (*client.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}

	out := *intent
	return &out, nil
}

func (g *fakeGateway) ParseWebhook(context.Context, http.Header, []byte) (*client.WebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	out := *g.event
	return &out, nil
}

func (g *fakeGateway) setStatus(intentID string, status client.IntentStatus, raw string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.intents[intentID].Status = status
	g.intents[intentID].RawStatus = raw
}

func (g *fakeGateway) succeed(intentID string) {
	g.setStatus(intentID, client.IntentStatusSucceeded, "succeeded")
}

func (g *fakeGateway) retrieveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retrieveCalls
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []client.Mail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg client.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []client.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.Mail(nil), m.sent...)
}

type testEnv struct {
	db            *gorm.DB
	gateway       *fakeGateway
	mailer        *fakeMailer
	redis         *miniredis.Miniredis
	orders        service.OrderService
	users         service.UserService
	notifications service.NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	cache, err := client.NewCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	logger := zap.NewNop()
	gateway := newFakeGateway()
	mailer := &fakeMailer{}

	userRepo := repository.NewUserRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), mailer, logger)
	orders := service.NewOrderService(
		db,
		gateway,
		cache,
		repository.NewOrderRepository(db),
		userRepo,
		repository.NewCourseRepository(db),
		repository.NewWebhookEventRepository(db),
		notifications,
		service.OrderSettings{
			Currency:       "INR",
			PublishableKey: "pk_test_123",
			CacheTTL:       time.Minute,
		},
		logger,
	)

	return &testEnv{
		db:            db,
		gateway:       gateway,
		mailer:        mailer,
		redis:         mr,
		orders:        orders,
		users:         service.NewUserService(userRepo, cache, time.Minute, logger),
		notifications: notifications,
	}
}
