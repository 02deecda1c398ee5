package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"postboard/internal/model"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *model.AccessToken) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(token).Error; err != nil {
		return fmt.Errorf("create access token failed: %w", err)
	}
	return nil
}

func (r *TokenRepository) GetByID(ctx context.Context, id uint) (*model.AccessToken, error) {
	var token model.AccessToken
	if err := r.db.WithContext(ctx).First(&token, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get access token failed: %w", err)
	}
	return &token, nil
}

func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*model.AccessToken, error) {
	var token model.AccessToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get access token by hash failed: %w", err)
	}
	return &token, nil
}

// Delete reports whether a row was removed.
func (r *TokenRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&model.AccessToken{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete access token failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// TouchLastUsed only moves last_used_at forward so out-of-order usage events
// cannot rewind it.
func (r *TokenRepository) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("id = ? AND (last_used_at IS NULL OR last_used_at < ?)", id, at).
		Update("last_used_at", at).Error; err != nil {
		return fmt.Errorf("touch access token failed: %w", err)
	}
	return nil
}
