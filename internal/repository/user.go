package repository

import (
	"context"
	"time"

	"elearning-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, tx *gorm.DB, userID string) (*model.User, error)
	GrantCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error)
	RevokeCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) error
	Seed(ctx context.Context, users []*model.User) error
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{
		db: db,
	}
}

func (r *userRepoImpl) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, userID string) (*model.User, error) {
	var user model.User
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Courses").
		Where("id = ?", userID).
		First(&user).Error

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GrantCourse adds courseID to the user's course set. It reports false when
// the user already had the course.
func (r *userRepoImpl) GrantCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&model.UserCourse{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now(),
	})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *userRepoImpl) RevokeCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.UserCourse{}).Error
}

func (r *userRepoImpl) Seed(ctx context.Context, users []*model.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error
}
