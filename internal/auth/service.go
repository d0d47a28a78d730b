// Package auth manages CoffeBuck accounts, their session tokens and their
// order history.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"coffebuck/internal/cart"
	"coffebuck/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Validation failures. Their messages are shown to customers as-is.
var (
	ErrUsernameTooShort  = errors.New("Username must be at least 2 characters")
	ErrInvalidEmail      = errors.New("Please enter a valid email")
	ErrPasswordTooShort  = errors.New("Password must be at least 4 characters")
	ErrPasswordTooLong   = errors.New("Password must be at most 72 bytes")
	ErrEmailTaken        = errors.New("Email already registered")
	ErrEmailRequired     = errors.New("Please enter your email")
	ErrPasswordRequired  = errors.New("Please enter your password")
	ErrEmailNotFound     = errors.New("Email not found")
	ErrIncorrectPassword = errors.New("Incorrect password")
	ErrEmptyOrder        = errors.New("Your cart is empty")
)

const (
	minUsername = 2
	minPassword = 4
)

// maxPasswordBytes is bcrypt's input limit; longer passwords are rejected.
const maxPasswordBytes = 72

// IsValidation reports whether err is a customer input problem rather than
// a storage or token failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUsernameTooShort, ErrInvalidEmail, ErrPasswordTooShort, ErrPasswordTooLong,
		ErrEmailRequired, ErrPasswordRequired, ErrEmptyOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Service implements signup, login and order history over a Repository.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	cost   int
	now    func() time.Time
}

// NewService wires a Service. A cost outside bcrypt's range uses
// bcrypt.DefaultCost.
func NewService(repo Repository, tokens *TokenIssuer, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, cost: cost, now: time.Now}
}

// Signup creates an account and signs the customer in.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateSignup(username, email, password); err != nil {
		logging.Audit().AuthEvent(logging.AuditSignup, email, false, err.Error())
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		logging.Audit().AuthEvent(logging.AuditSignup, email, false, ErrEmailTaken.Error())
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logging.Auth("Signed up %s", user.ID)
	logging.Audit().AuthEvent(logging.AuditSignup, email, true, "")
	return s.session(user, nil)
}

func validateSignup(username, email, password string) error {
	switch {
	case utf8.RuneCountInString(username) < minUsername:
		return ErrUsernameTooShort
	case email == "" || !strings.Contains(email, "@"):
		return ErrInvalidEmail
	case utf8.RuneCountInString(password) < minPassword:
		return ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// Login checks credentials and signs the customer in.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)

	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		logging.Audit().AuthEvent(logging.AuditLoginFailed, email, false, err.Error())
		return nil, err
	}

	orders, err := s.repo.Orders(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logging.Audit().AuthEvent(logging.AuditLogin, email, true, "")
	return s.session(user, orders)
}

func (s *Service) checkCredentials(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return user, nil
}

func (s *Service) session(user *User, orders []Order) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: user.Public(orders)}, nil
}

// Authenticate returns the user ID a token was issued to.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}

// Profile returns the account and its orders.
func (s *Service) Profile(ctx context.Context, userID string) (PublicUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return PublicUser{}, err
	}
	orders, err := s.repo.Orders(ctx, userID)
	if err != nil {
		return PublicUser{}, err
	}
	return user.Public(orders), nil
}

// RecordOrder stores lines as a new order priced at taxRate.
func (s *Service) RecordOrder(ctx context.Context, userID string, lines []cart.Line, taxRate float64) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyOrder
	}
	order := Order{
		ID:        uuid.New().String(),
		Lines:     lines,
		Totals:    cart.Totals(lines, taxRate),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AddOrder(ctx, userID, order); err != nil {
		return Order{}, err
	}
	logging.Auth("Recorded order %s for %s (%d lines)", order.ID, userID, len(lines))
	return order, nil
}
