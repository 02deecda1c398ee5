package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"postboard/internal/model"
)

const titleMaxLen = 255

type PostService struct {
	posts PostStore
}

type PostInput struct {
	Title string
	Body  string
}

func NewPostService(posts PostStore) *PostService {
	return &PostService{posts: posts}
}

// List is public and returns every post with its owner, newest first.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListLatest(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (*model.Post, error) {
	if id == 0 {
		return nil, ErrPostNotFound
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Create stores a post owned by the caller.
func (s *PostService) Create(ctx context.Context, caller *Caller, input PostInput) (*model.Post, error) {
	if caller == nil || caller.User == nil {
		return nil, ErrInvalidToken
	}
	input = input.normalized()
	if err := validatePost(input); err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID: caller.User.ID,
		Title:  input.Title,
		Body:   input.Body,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.User = caller.User
	return post, nil
}

// Update replaces title and body. Ownership is NOT checked: any
// authenticated caller may edit any post.
func (s *PostService) Update(ctx context.Context, caller *Caller, id uint, input PostInput) (*model.Post, error) {
	if caller == nil || caller.User == nil {
		return nil, ErrInvalidToken
	}
	input = input.normalized()
	if err := validatePost(input); err != nil {
		return nil, err
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.UpdateContent(ctx, post, input.Title, input.Body); err != nil {
		return nil, err
	}
	// Reload so timestamps and owner reflect what was stored.
	return s.Get(ctx, id)
}

// Delete removes a post. Like Update it does not check ownership.
func (s *PostService) Delete(ctx context.Context, caller *Caller, id uint) error {
	if caller == nil || caller.User == nil {
		return ErrInvalidToken
	}
	if id == 0 {
		return ErrPostNotFound
	}
	deleted, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPostNotFound
	}
	return nil
}

func (in PostInput) normalized() PostInput {
	return PostInput{
		Title: strings.TrimSpace(in.Title),
		Body:  strings.TrimSpace(in.Body),
	}
}

// validatePost expects normalized input.
func validatePost(input PostInput) error {
	verr := NewValidationError()
	switch {
	case input.Title == "":
		verr.Add("title", "The title field is required.")
	case utf8.RuneCountInString(input.Title) > titleMaxLen:
		verr.Add("title", fmt.Sprintf("The title field must not be greater than %d characters.", titleMaxLen))
	}
	if input.Body == "" {
		verr.Add("body", "The body field is required.")
	}
	return verr.OrNil()
}
