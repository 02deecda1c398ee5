package app

import (
	"context"
	"time"

	"postboard/internal/cache"
	"postboard/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

type TokenStore interface {
	Create(ctx context.Context, token *model.AccessToken) error
	GetByID(ctx context.Context, id uint) (*model.AccessToken, error)
	GetByHash(ctx context.Context, hash string) (*model.AccessToken, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	ListLatest(ctx context.Context) ([]model.Post, error)
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	UpdateContent(ctx context.Context, post *model.Post, title, body string) error
	Delete(ctx context.Context, id uint) (bool, error)
}

type TokenCache interface {
	Get(ctx context.Context, tokenHash string) (*cache.TokenEntry, bool, error)
	Set(ctx context.Context, tokenHash string, entry cache.TokenEntry, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

type TokenUsagePublisher interface {
	Publish(ctx context.Context, usage model.TokenUsage) error
}

// Caller is the identity resolved from a bearer token. It is passed
// explicitly to every operation that needs an acting user.
type Caller struct {
	User  *model.User
	Token *model.AccessToken
}
