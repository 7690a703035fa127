// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"elearning-backend/internal/client"
	"elearning-backend/internal/config"
	"elearning-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the schema applied.
// A single connection keeps the memory database alive and serialises
// transactions the way a locking store would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDatabase(config.Database{
		Driver:       "sqlite",
		URL:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func CreateUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()

	user := &model.User{
		Name:  name,
		Email: name + "@example.com",
		Role:  model.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateCourse(t *testing.T, db *gorm.DB, name string, price string) *model.Course {
	t.Helper()

	course := &model.Course{
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func ReloadCourse(t *testing.T, db *gorm.DB, id string) *model.Course {
	t.Helper()

	var course model.Course
	require.NoError(t, db.First(&course, "id = ?", id).Error)
	return &course
}

func ReloadUser(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()

	var user model.User
	require.NoError(t, db.Preload("Courses").First(&user, "id = ?", id).Error)
	return &user
}

func ReloadOrder(t *testing.T, db *gorm.DB, id string) *model.Order {
	t.Helper()

	var order model.Order
	require.NoError(t, db.First(&order, "id = ?", id).Error)
	return &order
}
