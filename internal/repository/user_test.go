package repository_test

import (
	"context"
	"testing"

	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"
	"elearning-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GrantCourseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.CreateUser(t, db, "alice")

	granted, err := repo.GrantCourse(ctx, nil, user.ID, "c1")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = repo.GrantCourse(ctx, nil, user.ID, "c1")
	require.NoError(t, err)
	assert.False(t, granted)

	found, err := repo.FindByID(ctx, nil, user.ID)
	require.NoError(t, err)
	require.Len(t, found.Courses, 1)
	assert.True(t, found.HasCourse("c1"))
}

func TestUserRepository_RevokeCourse(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.CreateUser(t, db, "alice")

	for _, c := range []string{"c1", "c2"} {
		_, err := repo.GrantCourse(ctx, nil, user.ID, c)
		require.NoError(t, err)
	}

	require.NoError(t, repo.RevokeCourse(ctx, nil, user.ID, "c1"))
	// revoking something the user never had is not an error
	require.NoError(t, repo.RevokeCourse(ctx, nil, user.ID, "c9"))

	found, err := repo.FindByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.False(t, found.HasCourse("c1"))
	assert.True(t, found.HasCourse("c2"))
}

func TestUserRepository_FindMissing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)

	_, err := repo.FindByID(context.Background(), nil, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_SeedTwice(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)

	users := []*model.User{{ID: "u-admin", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}}
	require.NoError(t, repo.Seed(ctx, users))
	require.NoError(t, repo.Seed(ctx, []*model.User{{ID: "u-admin", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}}))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
