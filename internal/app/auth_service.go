package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"postboard/internal/model"
	"postboard/internal/repository"
)

const (
	nameMinLen     = 3
	nameMaxLen     = 25
	passwordMinLen = 6

	emailTakenMessage = "The email has already been taken."
)

type AuthService struct {
	users      UserStore
	tokens     *TokenService
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  *model.User
}

func NewAuthService(users UserStore, tokens *TokenService, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := input.Password

	verr := NewValidationError()
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		verr.Add("name", "The name field is required.")
	case n < nameMinLen:
		verr.Add("name", fmt.Sprintf("The name field must be at least %d characters.", nameMinLen))
	case n > nameMaxLen:
		verr.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", nameMaxLen))
	}
	if email == "" {
		verr.Add("email", "The email field is required.")
	} else if !validEmail(email) {
		verr.Add("email", "The email field must be a valid email address.")
	}
	if password == "" {
		verr.Add("password", "The password field is required.")
	} else if utf8.RuneCountInString(password) < passwordMinLen {
		verr.Add("password", fmt.Sprintf("The password field must be at least %d characters.", passwordMinLen))
	}

	if err := s.CheckEmailAvailable(ctx, email, verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			verr.AddConflict("email", emailTakenMessage, ErrEmailTaken)
			return nil, verr
		}
		return nil, err
	}
	return user, nil
}

// CheckEmailAvailable records a conflict on verr when email is already
// registered. It runs even when other fields failed so a duplicate email is
// always reported; an email that already failed validation is skipped.
func (s *AuthService) CheckEmailAvailable(ctx context.Context, email string, verr *ValidationError) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, failed := verr.Fields["email"]; failed || email == "" {
		return nil
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		verr.AddConflict("email", emailTakenMessage, ErrEmailTaken)
	}
	return nil
}

// Login never reveals whether the email is registered: a missing user and a
// wrong password both cost one bcrypt comparison and return
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	verr := NewValidationError()
	if email == "" {
		verr.Add("email", "The email field is required.")
	} else if !validEmail(email) {
		verr.Add("email", "The email field must be a valid email address.")
	}
	if input.Password == "" {
		verr.Add("password", "The password field is required.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash := s.dummy()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(input.Password)); err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes only the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, caller *Caller) error {
	return s.tokens.Revoke(ctx, caller)
}

func (s *AuthService) CurrentUser(caller *Caller) (*model.User, error) {
	if caller == nil || caller.User == nil {
		return nil, ErrInvalidToken
	}
	return caller.User, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("postboard-timing-guard"), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}
