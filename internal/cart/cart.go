// Package cart keeps per-session shopping carts.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"coffebuck/internal/catalog"
)

const (
	// MaxAddQty caps a line's quantity when items are added to it.
	MaxAddQty = 99
	// MaxQty caps a quantity set directly.
	MaxQty = 999
	// DefaultTaxRate is applied by Totals callers that have no override.
	DefaultTaxRate = 0.08
)

var (
	ErrUnknownItem  = errors.New("unknown menu item")
	ErrInvalidQty   = errors.New("quantity must be at least 1")
	ErrEmptySession = errors.New("session id required")
	ErrLineNotFound = errors.New("item not in cart")
)

// Line is one catalog item in a cart. Price is captured when the line is
// first added.
type Line struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
	Qty   int    `json:"qty"`
}

// Total is Price times Qty.
func (l Line) Total() int { return l.Price * l.Qty }

// Subtotal sums line totals.
func Subtotal(lines []Line) int {
	sum := 0
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}

// Summary holds the money figures shown at checkout.
type Summary struct {
	Subtotal int     `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Totals computes subtotal, tax at rate (rounded to 2 places) and total.
func Totals(lines []Line, rate float64) Summary {
	sub := Subtotal(lines)
	tax := round2(float64(sub) * rate)
	return Summary{Subtotal: sub, Tax: tax, Total: round2(float64(sub) + tax)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineFor prices qty of the catalog item id.
func LineFor(c *catalog.Catalog, id string, qty int) (Line, error) {
	item, ok := c.Item(id)
	if !ok {
		return Line{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return Line{ID: item.Key, Name: item.Name, Price: item.Price, Qty: qty}, nil
}

// Store persists carts keyed by session ID. Implementations are safe for
// concurrent use; concurrent writers to one session see last-write-wins.
type Store interface {
	// AddItem merges l into the cart by ID, capping the merged quantity at
	// MaxAddQty.
	AddItem(ctx context.Context, session string, l Line) error
	// UpdateQty sets a line's quantity clamped to 0..MaxQty. Zero removes it.
	UpdateQty(ctx context.Context, session, id string, qty int) error
	Remove(ctx context.Context, session, id string) error
	Clear(ctx context.Context, session string) error
	// ReadAll returns lines in insertion order.
	ReadAll(ctx context.Context, session string) ([]Line, error)
	Close() error
}

func clampQty(qty int) int {
	return min(max(qty, 0), MaxQty)
}

func checkAdd(session string, l Line) error {
	if session == "" {
		return ErrEmptySession
	}
	if l.ID == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownItem)
	}
	if l.Qty < 1 {
		return ErrInvalidQty
	}
	return nil
}
