package cart

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"coffebuck/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists carts in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Cart("cart store opened at %s", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS cart_lines (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		qty INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_cart_session ON cart_lines(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddItem(ctx context.Context, session string, l Line) error {
	if err := checkAdd(session, l); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_lines (session_id, item_id, name, price, qty)
		VALUES (?, ?, ?, ?, MIN(?, ?))
		ON CONFLICT(session_id, item_id) DO UPDATE SET
			qty = MIN(?, cart_lines.qty + excluded.qty),
			updated_at = CURRENT_TIMESTAMP`,
		session, l.ID, l.Name, l.Price, l.Qty, MaxAddQty, MaxAddQty)
	if err != nil {
		logging.CartError("add %s to %s failed: %v", l.ID, session, err)
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateQty(ctx context.Context, session, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if qty = clampQty(qty); qty == 0 {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM cart_lines WHERE session_id = ? AND item_id = ?`, session, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE cart_lines SET qty = ?, updated_at = CURRENT_TIMESTAMP WHERE session_id = ? AND item_id = ?`,
			qty, session, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE session_id = ? AND item_id = ?`, session, id); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = ?`, session); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, session string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, name, price, qty FROM cart_lines WHERE session_id = ? ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Price, &l.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
