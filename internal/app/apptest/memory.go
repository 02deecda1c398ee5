// Package apptest provides in-memory implementations of the app ports for
// tests.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"postboard/internal/cache"
	"postboard/internal/model"
	"postboard/internal/repository"
)

type Users struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.User
}

func NewUsers() *Users {
	return &Users{byID: map[uint]model.User{}}
}

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	u.nextID++
	now := time.Now()
	user.ID = u.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	u.byID[user.ID] = *user
	return nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if existing.Email == email {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (u *Users) GetByID(_ context.Context, id uint) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

type Tokens struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.AccessToken
}

func NewTokens() *Tokens {
	return &Tokens{byID: map[uint]model.AccessToken{}}
}

func (t *Tokens) Create(_ context.Context, token *model.AccessToken) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	token.ID = t.nextID
	token.CreatedAt = time.Now()
	t.byID[token.ID] = *token
	return nil
}

func (t *Tokens) GetByID(_ context.Context, id uint) (*model.AccessToken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	token, ok := t.byID[id]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (t *Tokens) GetByHash(_ context.Context, hash string) (*model.AccessToken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, token := range t.byID {
		if token.TokenHash == hash {
			found := token
			return &found, nil
		}
	}
	return nil, nil
}

func (t *Tokens) Delete(_ context.Context, id uint) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[id]; !ok {
		return false, nil
	}
	delete(t.byID, id)
	return true, nil
}

func (t *Tokens) TouchLastUsed(_ context.Context, id uint, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	token, ok := t.byID[id]
	if !ok {
		return nil
	}
	if token.LastUsedAt == nil || token.LastUsedAt.Before(at) {
		token.LastUsedAt = &at
		t.byID[id] = token
	}
	return nil
}

func (t *Tokens) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// Posts orders by a logical clock so creation order is strict even when two
// posts share a wall-clock instant.
type Posts struct {
	mu     sync.Mutex
	users  *Users
	nextID uint
	clock  time.Time
	byID   map[uint]model.Post
}

func NewPosts(users *Users) *Posts {
	return &Posts{
		users: users,
		clock: time.Date(2025, 8, 8, 6, 41, 8, 0, time.UTC),
		byID:  map[uint]model.Post{},
	}
}

func (p *Posts) Create(_ context.Context, post *model.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.clock = p.clock.Add(time.Second)
	post.ID = p.nextID
	post.CreatedAt = p.clock
	post.UpdatedAt = p.clock
	stored := *post
	stored.User = nil
	p.byID[post.ID] = stored
	return nil
}

func (p *Posts) ListLatest(ctx context.Context) ([]model.Post, error) {
	p.mu.Lock()
	posts := make([]model.Post, 0, len(p.byID))
	for _, post := range p.byID {
		posts = append(posts, post)
	}
	p.mu.Unlock()

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	for i := range posts {
		posts[i].User, _ = p.users.GetByID(ctx, posts[i].UserID)
	}
	return posts, nil
}

func (p *Posts) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	p.mu.Lock()
	post, ok := p.byID[id]
	p.mu.Unlock()
	if !ok {
		return nil, nil
	}
	post.User, _ = p.users.GetByID(ctx, post.UserID)
	return &post, nil
}

func (p *Posts) UpdateContent(_ context.Context, post *model.Post, title, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored, ok := p.byID[post.ID]
	if !ok {
		return nil
	}
	p.clock = p.clock.Add(time.Second)
	stored.Title = title
	stored.Body = body
	stored.UpdatedAt = p.clock
	p.byID[post.ID] = stored
	post.UpdatedAt = p.clock
	return nil
}

func (p *Posts) Delete(_ context.Context, id uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[id]; !ok {
		return false, nil
	}
	delete(p.byID, id)
	return true, nil
}

func (p *Posts) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

// Cache ignores TTLs.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cache.TokenEntry
	Gets    int
	Hits    int
}

func NewCache() *Cache {
	return &Cache{entries: map[string]cache.TokenEntry{}}
}

func (c *Cache) Get(_ context.Context, tokenHash string) (*cache.TokenEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	entry, ok := c.entries[tokenHash]
	if !ok {
		return nil, false, nil
	}
	c.Hits++
	return &entry, true, nil
}

func (c *Cache) Set(_ context.Context, tokenHash string, entry cache.TokenEntry, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tokenHash] = entry
	return nil
}

func (c *Cache) Delete(_ context.Context, tokenHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tokenHash)
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type Publisher struct {
	mu     sync.Mutex
	Events []model.TokenUsage
}

func (p *Publisher) Publish(_ context.Context, usage model.TokenUsage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, usage)
	return nil
}

func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}
