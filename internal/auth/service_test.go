package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coffebuck/internal/cart"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	sqlite, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqlite,
	}
}

func newService(t *testing.T, repo Repository) *Service {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret-key-for-testing-only", time.Hour)
	require.NoError(t, err)
	return NewService(repo, tokens, bcrypt.MinCost)
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		want     error
	}{
		{"short username", " a ", "a@b.c", "secret", ErrUsernameTooShort},
		{"username checked first", "a", "nope", "x", ErrUsernameTooShort},
		{"email without at", "Asha", "asha.example.com", "secret", ErrInvalidEmail},
		{"empty email", "Asha", "   ", "secret", ErrInvalidEmail},
		{"short password", "Asha", "asha@example.com", "abc", ErrPasswordTooShort},
		{"short password counted in runes", "Asha", "asha@example.com", "ñé", ErrPasswordTooShort},
		{"password over bcrypt limit", "Asha", "asha@example.com", strings.Repeat("p", 80), ErrPasswordTooLong},
	}
	s := newService(t, NewMemoryRepository())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Signup(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestSignupPasswordLengthInRunes(t *testing.T) {
	s := newService(t, NewMemoryRepository())
	// Four runes, eight bytes.
	session, err := s.Signup(context.Background(), "Asha", "asha@example.com", "ñéüç")
	require.NoError(t, err)
	assert.Equal(t, "Asha", session.User.Username)

	_, err = s.Signup(context.Background(), "Ravi", "ravi@example.com", strings.Repeat("p", maxPasswordBytes))
	assert.NoError(t, err)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			s := newService(t, repo)

			sess, err := s.Signup(ctx, "  Asha ", " Asha@Example.com ", "latte")
			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
			assert.Equal(t, "Asha", sess.User.Username)
			assert.Equal(t, "Asha@Example.com", sess.User.Email)
			assert.NotNil(t, sess.User.Orders)
			assert.Empty(t, sess.User.Orders)

			userID, err := s.Authenticate(sess.Token)
			require.NoError(t, err)
			assert.Equal(t, sess.User.ID, userID)

			_, err = s.Signup(ctx, "Other", "asha@example.COM", "mocha")
			assert.ErrorIs(t, err, ErrEmailTaken)
			assert.False(t, IsValidation(err))

			login, err := s.Login(ctx, "asha@example.com", "latte")
			require.NoError(t, err)
			assert.Equal(t, sess.User.ID, login.User.ID)

			_, err = s.Login(ctx, "asha@example.com", "espresso")
			assert.ErrorIs(t, err, ErrIncorrectPassword)
		})
	}
}

func TestLoginErrors(t *testing.T) {
	s := newService(t, NewMemoryRepository())
	ctx := context.Background()

	_, err := s.Login(ctx, "  ", "x")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = s.Login(ctx, "a@b.c", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = s.Login(ctx, "nobody@b.c", "x")
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestPasswordIsHashedBeforeSaving(t *testing.T) {
	repo := NewMemoryRepository()
	s := newService(t, repo)

	_, err := s.Signup(context.Background(), "Test User", "test@example.com", "Password@123")
	require.NoError(t, err)

	user, err := repo.FindByEmail(context.Background(), "TEST@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Password@123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Password@123")))
}

func TestRecordOrder(t *testing.T) {
	ctx := context.Background()
	lines := []cart.Line{
		{ID: "espresso", Name: "Espresso", Price: 120, Qty: 2},
		{ID: "classic_tea", Name: "Classic Tea", Price: 80, Qty: 1},
	}
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			s := newService(t, repo)
			sess, err := s.Signup(ctx, "Asha", "asha@example.com", "latte")
			require.NoError(t, err)

			_, err = s.RecordOrder(ctx, sess.User.ID, nil, cart.DefaultTaxRate)
			assert.ErrorIs(t, err, ErrEmptyOrder)

			order, err := s.RecordOrder(ctx, sess.User.ID, lines, cart.DefaultTaxRate)
			require.NoError(t, err)
			assert.Equal(t, cart.Summary{Subtotal: 320, Tax: 25.6, Total: 345.6}, order.Totals)

			profile, err := s.Profile(ctx, sess.User.ID)
			require.NoError(t, err)
			if diff := cmp.Diff([]Order{order}, profile.Orders); diff != "" {
				t.Errorf("orders mismatch (-want +got):\n%s", diff)
			}

			_, err = s.RecordOrder(ctx, "missing", lines, cart.DefaultTaxRate)
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	issuer, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	issuer.now = func() time.Time { return now }

	token, expires, err := issuer.Issue("user-1", "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), expires)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	other, err := NewTokenIssuer("other-secret", time.Minute)
	require.NoError(t, err)
	other.now = issuer.now
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("invalid_token_xyz")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRepositoryDuplicateAndLookup(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			u := &User{ID: "u1", Username: "Asha", Email: "Asha@x.io", PasswordHash: "h", CreatedAt: time.Unix(10, 0).UTC()}
			require.NoError(t, repo.Create(ctx, u))
			assert.ErrorIs(t, repo.Create(ctx, &User{ID: "u2", Email: "asha@X.IO", CreatedAt: time.Unix(11, 0)}), ErrDuplicate)

			got, err := repo.FindByID(ctx, "u1")
			require.NoError(t, err)
			if diff := cmp.Diff(u, got); diff != "" {
				t.Errorf("user mismatch (-want +got):\n%s", diff)
			}

			_, err = repo.FindByID(ctx, "nope")
			assert.ErrorIs(t, err, ErrUserNotFound)

			orders, err := repo.Orders(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}
