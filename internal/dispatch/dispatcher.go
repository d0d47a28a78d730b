// Package dispatch routes one line of shopper input to a canned response.
//
// Classification is an ordered list of rules evaluated first-match-wins;
// the order is part of the behavior (an order phrase must win over the
// broader menu phrase, for example). Responding is pure: side effects on the
// cart or the page are returned as an Action for the caller to perform.
package dispatch

import (
	"strings"
	"time"
	"unicode/utf8"

	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
)

// MaxInputRunes caps how much of a message is classified.
const MaxInputRunes = 2000

// CheckoutDelay is how long the shell should wait before navigating to the
// payment page, so the shopper can read the confirmation.
const CheckoutDelay = time.Second

// Intent names the rule that produced a response.
type Intent string

const (
	IntentOrder     Intent = "order"
	IntentPrice     Intent = "price"
	IntentCheckout  Intent = "checkout"
	IntentViewCart  Intent = "view_cart"
	IntentAbout     Intent = "about"
	IntentLocations Intent = "locations"
	IntentMenu      Intent = "menu"
	IntentHelp      Intent = "help"
	IntentClearCart Intent = "clear_cart"
	IntentGreeting  Intent = "greeting"
	IntentSocial    Intent = "social"
	IntentFallback  Intent = "fallback"
)

// ActionKind enumerates the requests a response can carry.
type ActionKind string

const (
	ActionNone      ActionKind = ""
	ActionAddToCart ActionKind = "add_to_cart"
	ActionClearCart ActionKind = "clear_cart"
	ActionNavigate  ActionKind = "navigate"
	ActionReadCart  ActionKind = "read_cart"
)

// Action is a side effect the caller should perform after showing Text.
// ActionReadCart is informational: the cart was already read through the
// CartReader handed to Respond.
type Action struct {
	Kind   ActionKind
	Item   catalog.MenuItem // ActionAddToCart
	Qty    int              // ActionAddToCart
	Target string           // ActionNavigate
	Delay  time.Duration    // ActionNavigate
}

// Line converts an add-to-cart action into a cart line.
func (a Action) Line() cart.Line {
	return cart.Line{ID: a.Item.Key, Name: a.Item.Name, Price: a.Item.Price, Qty: a.Qty}
}

// Outcome is the single response to one input.
type Outcome struct {
	Intent Intent
	Text   string
	Action Action
}

// CartReader exposes the shopper's current cart lines.
type CartReader interface {
	Lines() []cart.Line
}

// LinesReader adapts a fixed slice to CartReader.
type LinesReader []cart.Line

// Lines returns the slice itself.
func (l LinesReader) Lines() []cart.Line { return l }

// Dispatcher answers shopper input against one catalog snapshot.
type Dispatcher struct {
	catalog  *catalog.Catalog
	menuText string
}

// New builds a dispatcher over c. The catalog must not change afterwards;
// build a new dispatcher for a new snapshot.
func New(c *catalog.Catalog) *Dispatcher {
	d := &Dispatcher{catalog: c}
	d.menuText = d.renderMenu()
	return d
}

// Catalog returns the snapshot the dispatcher answers from.
func (d *Dispatcher) Catalog() *catalog.Catalog { return d.catalog }

// Rules lists the intents in evaluation order.
func Rules() []Intent {
	out := make([]Intent, len(rules))
	for i, r := range rules {
		out[i] = r.intent
	}
	return out
}

// Respond classifies input and builds the response. reader may be nil, in
// which case view-cart phrases fall through to later rules. Respond never
// returns an empty Text.
func (d *Dispatcher) Respond(input string, reader CartReader) Outcome {
	req := &request{text: normalize(input), cart: reader}
	req.runes = utf8.RuneCountInString(req.text)

	for _, r := range rules {
		if !r.match(req) {
			continue
		}
		out := r.handle(d, req)
		out.Intent = r.intent
		return out
	}
	// rules ends with an unconditional fallback
	return Outcome{Intent: IntentFallback, Text: fallbackText}
}

func normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(s) > MaxInputRunes {
		s = string([]rune(s)[:MaxInputRunes])
	}
	return s
}

// request is the per-call scratch state shared by a rule's match and handle.
type request struct {
	text   string
	runes  int
	cart   CartReader
	groups []string
}
