package service_test

import (
	"context"
	"testing"

	"elearning-backend/internal/model"
	"elearning-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCompletedNotification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "alice")
	course := testutil.CreateCourse(t, env.db, "Go Basics", "499.00")

	order := &model.Order{
		ID:       "3f2a9c10-0000-4000-8000-000000000000",
		UserID:   user.ID,
		CourseID: course.ID,
		PaymentInfo: model.PaymentInfo{
			Amount:   49900,
			Currency: "inr",
		},
	}
	env.notifications.OrderCompleted(ctx, order, user, course)
	env.notifications.Wait()

	notifications, err := env.notifications.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "unread", notifications[0].Status)

	sent := env.mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order Confirmation", sent[0].Subject)

	data, ok := sent[0].Data.(map[string]any)
	require.True(t, ok)
	orderData := data["Order"].(map[string]any)
	assert.Equal(t, "3f2a9c", orderData["ID"])
	assert.Equal(t, "499.00", orderData["Price"])
	assert.Equal(t, "INR", orderData["Currency"])
}

func TestOrderCompletedWithoutCourseSkipsEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "alice")

	env.notifications.OrderCompleted(ctx, &model.Order{ID: "o1", UserID: user.ID}, user, nil)
	env.notifications.Wait()

	notifications, err := env.notifications.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "a course")
	assert.Empty(t, env.mailer.messages())
}
