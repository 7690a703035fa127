package service

import (
	"context"
	"errors"
	"time"

	"elearning-backend/internal/apperror"
	"elearning-backend/internal/client"
	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type userServiceImpl struct {
	userRepo repository.UserRepository
	cache    client.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	cache client.Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetUser reads through the cache. Order confirmation and deletion drop the
// cached entry because they change the user's courses.
func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if !isValidID(userID) {
		return nil, ErrInvalidUserID
	}

	key := userCacheKey(userID)
	if user, ok := cacheGet[model.User](ctx, s.cache, s.logger, key); ok {
		return user, nil
	}

	user, err := s.userRepo.FindByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	cacheSet(ctx, s.cache, s.logger, key, user, s.cacheTTL)
	return user, nil
}
