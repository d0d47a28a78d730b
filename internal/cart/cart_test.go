package cart

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"coffebuck/internal/catalog"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	espresso = Line{ID: "espresso", Name: "Espresso", Price: 120, Qty: 1}
	tea      = Line{ID: "classic_tea", Name: "Classic Tea", Price: 80, Qty: 1}
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "cart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func withQty(l Line, qty int) Line {
	l.Qty = qty
	return l
}

func TestStoreAddMergesByID(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.AddItem(ctx, "s1", espresso))
			require.NoError(t, s.AddItem(ctx, "s1", tea))
			require.NoError(t, s.AddItem(ctx, "s1", withQty(espresso, 2)))

			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			want := []Line{withQty(espresso, 3), tea}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreAddCapsQuantity(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.AddItem(ctx, "s1", withQty(espresso, 150)))
			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, MaxAddQty, got[0].Qty)

			require.NoError(t, s.AddItem(ctx, "s1", espresso))
			got, err = s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, MaxAddQty, got[0].Qty)
		})
	}
}

func TestStoreAddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.AddItem(ctx, "", espresso), ErrEmptySession)
			assert.ErrorIs(t, s.AddItem(ctx, "s1", withQty(espresso, 0)), ErrInvalidQty)
			assert.ErrorIs(t, s.AddItem(ctx, "s1", Line{Qty: 1}), ErrUnknownItem)
		})
	}
}

func TestStoreUpdateQty(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.AddItem(ctx, "s1", espresso))
			require.NoError(t, s.AddItem(ctx, "s1", tea))

			require.NoError(t, s.UpdateQty(ctx, "s1", "espresso", 5000))
			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, MaxQty, got[0].Qty)

			require.NoError(t, s.UpdateQty(ctx, "s1", "espresso", -3))
			got, err = s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, []Line{tea}, got)

			assert.ErrorIs(t, s.UpdateQty(ctx, "s1", "espresso", 2), ErrLineNotFound)
		})
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.AddItem(ctx, "s1", espresso))
			require.NoError(t, s.AddItem(ctx, "s1", tea))
			require.NoError(t, s.AddItem(ctx, "s2", tea))

			require.NoError(t, s.Remove(ctx, "s1", "espresso"))
			require.NoError(t, s.Remove(ctx, "s1", "missing"))
			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, []Line{tea}, got)

			require.NoError(t, s.Clear(ctx, "s1"))
			got, err = s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			assert.Empty(t, got)

			other, err := s.ReadAll(ctx, "s2")
			require.NoError(t, err)
			assert.Equal(t, []Line{tea}, other)
		})
	}
}

func TestStoreConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.AddItem(ctx, "s1", espresso))
				}()
			}
			wg.Wait()

			got, err := s.ReadAll(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 20, got[0].Qty)
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cart.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.AddItem(ctx, "s1", withQty(tea, 4)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ReadAll(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []Line{withQty(tea, 4)}, got)
	assert.Equal(t, path, s.Path())
}

func TestTotals(t *testing.T) {
	lines := []Line{withQty(espresso, 2), withQty(tea, 1)}
	got := Totals(lines, DefaultTaxRate)
	assert.Equal(t, Summary{Subtotal: 320, Tax: 25.6, Total: 345.6}, got)

	assert.Equal(t, Summary{}, Totals(nil, DefaultTaxRate))

	odd := Totals([]Line{{ID: "x", Price: 333, Qty: 1}}, DefaultTaxRate)
	assert.Equal(t, 26.64, odd.Tax)
	assert.Equal(t, 359.64, odd.Total)
}

func TestLineFor(t *testing.T) {
	c := catalog.Default()

	l, err := LineFor(c, "matcha_latte", 2)
	require.NoError(t, err)
	assert.Equal(t, Line{ID: "matcha_latte", Name: "Matcha Latte", Price: 190, Qty: 2}, l)
	assert.Equal(t, 380, l.Total())

	_, err = LineFor(c, "pizza", 1)
	assert.ErrorIs(t, err, ErrUnknownItem)
}
