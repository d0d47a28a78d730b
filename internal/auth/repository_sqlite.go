package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository stores accounts and their orders in SQLite.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository connects to (creating if needed) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to users database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			email_lower TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	}

	for _, tableSQL := range tables {
		if _, err := r.db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, email_lower, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password_hash, created_at`

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email_lower = ?`, strings.ToLower(email))
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

type orderPayload struct {
	Lines  json.RawMessage `json:"items"`
	Totals json.RawMessage `json:"totals"`
}

type orderRow struct {
	ID        string    `db:"id"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *SQLiteRepository) AddOrder(ctx context.Context, userID string, o Order) error {
	if _, err := r.FindByID(ctx, userID); err != nil {
		return err
	}
	payload, err := json.Marshal(struct {
		Lines  any `json:"items"`
		Totals any `json:"totals"`
	}{o.Lines, o.Totals})
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		o.ID, userID, string(payload), o.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Orders(ctx context.Context, userID string) ([]Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, payload, created_at FROM orders WHERE user_id = ? ORDER BY created_at, id`, userID); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	orders := make([]Order, 0, len(rows))
	for _, row := range rows {
		var p orderPayload
		if err := json.Unmarshal([]byte(row.Payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode order %s: %w", row.ID, err)
		}
		o := Order{ID: row.ID, CreatedAt: row.CreatedAt}
		if err := json.Unmarshal(p.Lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("failed to decode order %s items: %w", row.ID, err)
		}
		if err := json.Unmarshal(p.Totals, &o.Totals); err != nil {
			return nil, fmt.Errorf("failed to decode order %s totals: %w", row.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
