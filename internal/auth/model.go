package auth

import (
	"time"

	"coffebuck/internal/cart"
)

// User is the stored account.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Order is a checked-out cart.
type Order struct {
	ID        string       `json:"id"`
	Lines     []cart.Line  `json:"items"`
	Totals    cart.Summary `json:"totals"`
	CreatedAt time.Time    `json:"created_at"`
}

// PublicUser is the account view safe to hand to clients.
type PublicUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Orders   []Order `json:"orders"`
}

// Public strips the password hash.
func (u *User) Public(orders []Order) PublicUser {
	if orders == nil {
		orders = []Order{}
	}
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Orders: orders}
}

// Session is returned after signup or login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}
