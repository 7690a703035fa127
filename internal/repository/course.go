package repository

import (
	"context"

	"elearning-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, tx *gorm.DB, courseID string) (*model.Course, error)
	IncrementPurchased(ctx context.Context, tx *gorm.DB, courseID string) error
	DecrementPurchased(ctx context.Context, tx *gorm.DB, courseID string) error
	Seed(ctx context.Context, courses []*model.Course) error
}

type courseRepoImpl struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepoImpl{
		db: db,
	}
}

func (r *courseRepoImpl) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, courseID string) (*model.Course, error) {
	var course model.Course
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", courseID).
		First(&course).Error

	if err != nil {
		return nil, err
	}

	return &course, nil
}

func (r *courseRepoImpl) IncrementPurchased(ctx context.Context, tx *gorm.DB, courseID string) error {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("purchased", gorm.Expr("purchased + ?", 1))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DecrementPurchased never takes the counter below zero.
func (r *courseRepoImpl) DecrementPurchased(ctx context.Context, tx *gorm.DB, courseID string) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Course{}).
		Where("id = ? AND purchased > 0", courseID).
		UpdateColumn("purchased", gorm.Expr("purchased - ?", 1)).Error
}

func (r *courseRepoImpl) Seed(ctx context.Context, courses []*model.Course) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&courses).Error
}
