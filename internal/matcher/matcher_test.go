package matcher

import (
	"strings"
	"testing"
	"unicode/utf8"

	"coffebuck/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"cappucino", "cappuccino", 1},
		{"espresso", "expresso", 1},
		{"latte", "latte", 0},
		{"chai", "chia", 2},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func FuzzDistanceProperties(f *testing.F) {
	f.Add("matcha latte", "macha late")
	f.Add("", "espresso")
	f.Add("iced mocha", "iced mocha")
	f.Fuzz(func(t *testing.T, a, b string) {
		if !utf8.ValidString(a) || !utf8.ValidString(b) {
			t.Skip("distance is defined over runes")
		}
		d := Distance(a, b)
		if d != Distance(b, a) {
			t.Fatalf("distance not symmetric for %q, %q", a, b)
		}
		if (d == 0) != (a == b) {
			t.Fatalf("distance %d for %q, %q violates zero-iff-equal", d, a, b)
		}
		la, lb := len([]rune(a)), len([]rune(b))
		if d < abs(la-lb) || d > max(la, lb) {
			t.Fatalf("distance %d out of bounds for lengths %d, %d", d, la, lb)
		}
	})
}

func TestFindClosestVerbatimNames(t *testing.T) {
	c := catalog.Default()
	c.Each(func(item catalog.MenuItem) {
		for _, q := range []string{item.Name, strings.ToLower(item.Name), "  " + strings.ToUpper(item.Name) + " "} {
			r, ok := FindClosest(q, c)
			require.True(t, ok, q)
			assert.Equal(t, item.Key, r.Key, q)
			assert.Equal(t, 0, r.Distance, q)
			assert.True(t, r.Exact())
		}
	})
}

func TestFindClosestTypos(t *testing.T) {
	c := catalog.Default()

	tests := []struct {
		query    string
		wantKey  string
		wantDist int
	}{
		{"cappucino", "cappuccino", 1},
		{"expresso", "espresso", 1},
		{"macha latte", "matcha_latte", 1},
		{"chai late", "chai_latte", 1},
		{"iced moca", "iced_mocha", 1},
		{"carmel machiato", "caramel_macchiato", 2},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r, ok := FindClosest(tt.query, c)
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, r.Key)
			assert.Equal(t, tt.wantDist, r.Distance)
			assert.Equal(t, tt.wantKey, r.Item.Key)
		})
	}
}

func TestFindClosestRejectsDistantQueries(t *testing.T) {
	c := catalog.Default()
	for _, q := range []string{"pizza", "cold brew", "xyzzy plugh", "latte", "my cart"} {
		_, ok := FindClosest(q, c)
		assert.False(t, ok, q)
	}
}

func TestFindClosestEmptyQuery(t *testing.T) {
	c := catalog.Default()
	for _, q := range []string{"", "   ", "\t\n"} {
		_, ok := FindClosest(q, c)
		assert.False(t, ok, "%q", q)
	}
}

func TestFindClosestLongQuery(t *testing.T) {
	c := catalog.Default()
	_, ok := FindClosest(strings.Repeat("espresso", 1000), c)
	assert.False(t, ok)
}

func TestFindClosestTieGoesToFirstDeclared(t *testing.T) {
	c, err := catalog.Parse([]byte(`
items:
  - {key: zeta, name: abcd, price: 1}
  - {key: alpha, name: abce, price: 2}
`))
	require.NoError(t, err)

	r, ok := FindClosest("abcx", c)
	require.True(t, ok)
	assert.Equal(t, "zeta", r.Key)
	assert.Equal(t, 1, r.Distance)
}

func TestFindReturnsErrNoMatch(t *testing.T) {
	_, err := Find("pizza", catalog.Default())
	assert.ErrorIs(t, err, ErrNoMatch)

	r, err := Find("Espresso", catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, 120, r.Item.Price)
}

func TestFindClosestNilCatalog(t *testing.T) {
	_, ok := FindClosest("espresso", nil)
	assert.False(t, ok)
}

func BenchmarkFindClosest(b *testing.B) {
	c := catalog.Default()
	for i := 0; i < b.N; i++ {
		FindClosest("carmel machiato", c)
	}
}
