// Package catalog holds the static storefront configuration: the menu and
// the store profile. A Catalog is built once and never mutated; reloads
// produce a new Catalog.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MenuItem is a purchasable item.
type MenuItem struct {
	Key         string `yaml:"key" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Price       int    `yaml:"price" json:"price"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}

// Category groups items for display.
type Category struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// Location is a physical cafe.
type Location struct {
	Name  string `yaml:"name" json:"name"`
	City  string `yaml:"city" json:"city"`
	Hours string `yaml:"hours" json:"hours"`
}

// SocialLink is a contact channel shown by the assistant.
type SocialLink struct {
	Name   string `yaml:"name" json:"name"`
	Handle string `yaml:"handle,omitempty" json:"handle,omitempty"`
	URL    string `yaml:"url" json:"url"`
}

// Profile describes the brand.
type Profile struct {
	Name      string       `yaml:"name" json:"name"`
	About     string       `yaml:"about" json:"about"`
	Locations []Location   `yaml:"locations" json:"locations"`
	Social    []SocialLink `yaml:"social" json:"social"`
}

// Pages are the site destinations the assistant links or navigates to.
type Pages struct {
	Menu         string `yaml:"menu"`
	Payment      string `yaml:"payment"`
	Contact      string `yaml:"contact"`
	StoreLocator string `yaml:"store_locator"`
}

// document is the on-disk shape of a catalog file.
type document struct {
	Version    string     `yaml:"version"`
	Currency   string     `yaml:"currency"`
	Categories []Category `yaml:"categories"`
	Items      []MenuItem `yaml:"items"`
	Store      Profile    `yaml:"store"`
	Pages      Pages      `yaml:"pages"`
}

// Catalog is an immutable, validated menu plus store profile.
type Catalog struct {
	version    string
	currency   string
	categories []Category
	items      []MenuItem
	index      map[string]int
	profile    Profile
	pages      Pages
}

var (
	ErrDuplicateKey    = errors.New("duplicate item key")
	ErrEmptyName       = errors.New("item name is empty")
	ErrNegativePrice   = errors.New("item price is negative")
	ErrUnknownCategory = errors.New("item category is not declared")
)

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return build(doc)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault loads path, or returns the embedded catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

func build(doc document) (*Catalog, error) {
	if doc.Currency == "" {
		doc.Currency = "₹"
	}

	c := &Catalog{
		version:    doc.Version,
		currency:   doc.Currency,
		categories: append([]Category(nil), doc.Categories...),
		items:      make([]MenuItem, 0, len(doc.Items)),
		index:      make(map[string]int, len(doc.Items)),
		profile:    copyProfile(doc.Store),
		pages:      doc.Pages,
	}

	known := make(map[string]bool, len(doc.Categories))
	for _, cat := range doc.Categories {
		known[cat.Key] = true
	}

	for _, item := range doc.Items {
		if _, dup := c.index[item.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, item.Key)
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyName, item.Key)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNegativePrice, item.Key)
		}
		if len(known) > 0 && !known[item.Category] {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownCategory, item.Key, item.Category)
		}
		c.index[item.Key] = len(c.items)
		c.items = append(c.items, item)
	}

	return c, nil
}

func copyProfile(p Profile) Profile {
	p.Locations = append([]Location(nil), p.Locations...)
	p.Social = append([]SocialLink(nil), p.Social...)
	return p
}

// Version returns the catalog's declared version string.
func (c *Catalog) Version() string { return c.version }

// Currency returns the currency symbol prices are shown with.
func (c *Catalog) Currency() string { return c.currency }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Item looks up an item by key.
func (c *Catalog) Item(key string) (MenuItem, bool) {
	i, ok := c.index[key]
	if !ok {
		return MenuItem{}, false
	}
	return c.items[i], true
}

// Items returns a copy of the items in declaration order.
func (c *Catalog) Items() []MenuItem {
	return append([]MenuItem(nil), c.items...)
}

// Each calls fn for every item in declaration order without copying.
func (c *Catalog) Each(fn func(MenuItem)) {
	for _, item := range c.items {
		fn(item)
	}
}

// Categories returns the declared categories in order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Section is one category with its items.
type Section struct {
	Category Category
	Items    []MenuItem
}

// ByCategory groups items under their categories, both in declaration order.
// Categories with no items are omitted.
func (c *Catalog) ByCategory() []Section {
	sections := make([]Section, 0, len(c.categories))
	for _, cat := range c.categories {
		s := Section{Category: cat}
		for _, item := range c.items {
			if item.Category == cat.Key {
				s.Items = append(s.Items, item)
			}
		}
		if len(s.Items) > 0 {
			sections = append(sections, s)
		}
	}
	return sections
}

// Profile returns a copy of the store profile.
func (c *Catalog) Profile() Profile { return copyProfile(c.profile) }

// Pages returns the site destinations.
func (c *Catalog) Pages() Pages { return c.pages }

// FormatPrice renders an amount with the catalog currency, e.g. "₹150".
func (c *Catalog) FormatPrice(amount int) string {
	return fmt.Sprintf("%s%d", c.currency, amount)
}
