package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"postboard/internal/cache"
	"postboard/internal/model"
)

const (
	defaultTokenName = "API Token"
	secretBytes      = 30 // 40 chars once base64url encoded
)

// TokenService issues, validates and revokes opaque bearer tokens of the
// form "<id>|<secret>".
type TokenService struct {
	tokens    TokenStore
	users     UserStore
	cache     TokenCache
	publisher TokenUsagePublisher
	ttl       time.Duration
	cacheTTL  time.Duration
	now       func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithTokenCache enables the read-through token cache.
func WithTokenCache(c TokenCache, ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithUsagePublisher reports each successful validation asynchronously.
func WithUsagePublisher(p TokenUsagePublisher) TokenServiceOption {
	return func(s *TokenService) {
		s.publisher = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService builds a token service. A ttl of zero issues tokens that
// never expire.
func NewTokenService(tokens TokenStore, users UserStore, ttl time.Duration, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		tokens: tokens,
		users:  users,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a new token bound to user and returns its plain text form.
// The plain text is never stored.
func (s *TokenService) Issue(ctx context.Context, user *model.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", ErrInvalidCredentials
	}

	secret, err := generateSecret()
	if err != nil {
		return "", err
	}

	token := &model.AccessToken{
		UserID:    user.ID,
		Name:      defaultTokenName,
		TokenHash: hashSecret(secret),
	}
	if s.ttl > 0 {
		expiresAt := s.now().Add(s.ttl)
		token.ExpiresAt = &expiresAt
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d|%s", token.ID, secret), nil
}

// Validate resolves a plain token to its caller.
func (s *TokenService) Validate(ctx context.Context, plain string) (*Caller, error) {
	id, secret := splitToken(plain)
	if secret == "" {
		return nil, ErrInvalidToken
	}
	hash := hashSecret(secret)
	now := s.now()

	if caller, ok := s.fromCache(ctx, id, hash, now); ok {
		s.recordUsage(ctx, caller.Token.ID, now)
		return caller, nil
	}

	token, err := s.lookup(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	if token == nil || token.Expired(now) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if s.cache != nil {
		entry := cache.TokenEntry{TokenID: token.ID, ExpiresAt: token.ExpiresAt, User: *user}
		if err := s.cache.Set(ctx, hash, entry, s.cacheTTL); err != nil {
			log.Printf("token cache set failed: %v", err)
		} else if err := s.confirmCached(ctx, token.ID, hash); err != nil {
			return nil, err
		}
	}

	s.recordUsage(ctx, token.ID, now)
	return &Caller{User: user, Token: token}, nil
}

// Revoke deletes the caller's token. A token that is already gone yields
// ErrInvalidToken.
func (s *TokenService) Revoke(ctx context.Context, caller *Caller) error {
	if caller == nil || caller.Token == nil || caller.Token.ID == 0 {
		return ErrInvalidToken
	}

	deleted, err := s.tokens.Delete(ctx, caller.Token.ID)
	if err != nil {
		return err
	}
	if s.cache != nil && caller.Token.TokenHash != "" {
		if err := s.cache.Delete(ctx, caller.Token.TokenHash); err != nil {
			log.Printf("token cache delete failed: %v", err)
		}
	}
	if !deleted {
		return ErrInvalidToken
	}
	return nil
}

func (s *TokenService) lookup(ctx context.Context, id uint, hash string) (*model.AccessToken, error) {
	if id == 0 {
		return s.tokens.GetByHash(ctx, hash)
	}

	token, err := s.tokens.GetByID(ctx, id)
	if err != nil || token == nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(token.TokenHash), []byte(hash)) != 1 {
		return nil, nil
	}
	return token, nil
}

// confirmCached re-reads the row after caching it. A Revoke that deleted the
// row between lookup and Set has already evicted the cache, so the entry just
// written must be dropped here or it would keep the token alive.
func (s *TokenService) confirmCached(ctx context.Context, id uint, hash string) error {
	token, err := s.tokens.GetByID(ctx, id)
	if err == nil && token != nil {
		return nil
	}
	if derr := s.cache.Delete(ctx, hash); derr != nil {
		log.Printf("token cache delete failed: %v", derr)
	}
	if err != nil {
		return err
	}
	return ErrInvalidToken
}

func (s *TokenService) fromCache(ctx context.Context, id uint, hash string, now time.Time) (*Caller, bool) {
	if s.cache == nil {
		return nil, false
	}

	entry, hit, err := s.cache.Get(ctx, hash)
	if err != nil {
		log.Printf("token cache get failed: %v", err)
		return nil, false
	}
	if !hit || (id != 0 && entry.TokenID != id) {
		return nil, false
	}

	token := &model.AccessToken{
		ID:        entry.TokenID,
		UserID:    entry.User.ID,
		Name:      defaultTokenName,
		TokenHash: hash,
		ExpiresAt: entry.ExpiresAt,
	}
	if token.Expired(now) {
		return nil, false
	}
	user := entry.User
	return &Caller{User: &user, Token: token}, true
}

func (s *TokenService) recordUsage(ctx context.Context, tokenID uint, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, model.TokenUsage{TokenID: tokenID, UsedAt: at}); err != nil {
		log.Printf("publish token usage failed: %v", err)
	}
}

// splitToken accepts "<id>|<secret>" as well as a bare secret.
func splitToken(plain string) (uint, string) {
	plain = strings.TrimSpace(plain)
	idPart, secret, found := strings.Cut(plain, "|")
	if !found {
		return 0, plain
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, ""
	}
	return uint(id), secret
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
