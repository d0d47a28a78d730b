package dispatch

import (
	"regexp"

	"coffebuck/internal/logging"
	"coffebuck/internal/matcher"
)

// menuMaxRunes keeps the broad menu phrase from swallowing longer sentences
// that merely contain "show" or "list".
const menuMaxRunes = 30

// rule pairs a trigger with the handler that answers it. match may stash
// capture groups on the request for handle.
type rule struct {
	intent Intent
	match  func(req *request) bool
	handle func(d *Dispatcher, req *request) Outcome
}

var (
	orderPattern     = regexp.MustCompile(`\b(?:add|order|get|give|bring|i want|i need|gimme)\s+(?:me\s+)?(?:a\s+)?(.+?)(?:\s+to\s+(?:my\s+|the\s+)?cart|\s+please|$)`)
	pricePattern     = regexp.MustCompile(`(?:how much|price|cost|what.*cost)\s+(?:is|for|of)?\s+(?:the\s+)?(?:a\s+)?(.+?)(?:\s*\?|$)`)
	checkoutPattern  = regexp.MustCompile(`\b(?:checkout|pay|payment|proceed|complete|finish)\b`)
	viewCartPattern  = regexp.MustCompile(`(?:show|view|what.*in|list).* cart\b`)
	aboutPattern     = regexp.MustCompile(`(?:who are you|what is|about|company|story|background)\b`)
	locationsPattern = regexp.MustCompile(`\b(?:locations?|stores?|where|find|near(?:by|est)?)\b`)
	menuPattern      = regexp.MustCompile(`(?:show|view|what.*have|list|menu)\b`)
	helpPattern      = regexp.MustCompile(`(?:how to|guide|help|how do i|how.*work|tutorial)\b`)
	clearCartPattern = regexp.MustCompile(`clear.*cart|remove all|empty cart\b`)
	greetingPattern  = regexp.MustCompile(`^(?:hi|hello|hey|greetings|what can you|help me)\b`)
	socialPattern    = regexp.MustCompile(`(?:instagram|facebook|twitter|social|contact|reach|follow)\b`)
)

// rules is the fixed evaluation order. The last rule always matches.
var rules = []rule{
	{intent: IntentOrder, match: capture(orderPattern), handle: (*Dispatcher).handleOrder},
	{intent: IntentPrice, match: capture(pricePattern), handle: (*Dispatcher).handlePrice},
	{intent: IntentCheckout, match: matches(checkoutPattern), handle: (*Dispatcher).handleCheckout},
	{intent: IntentViewCart, match: matchViewCart, handle: (*Dispatcher).handleViewCart},
	{intent: IntentAbout, match: matches(aboutPattern), handle: (*Dispatcher).handleAbout},
	{intent: IntentLocations, match: matches(locationsPattern), handle: (*Dispatcher).handleLocations},
	{intent: IntentMenu, match: matchMenu, handle: (*Dispatcher).handleMenu},
	{intent: IntentHelp, match: matches(helpPattern), handle: (*Dispatcher).handleHelp},
	{intent: IntentClearCart, match: matches(clearCartPattern), handle: (*Dispatcher).handleClearCart},
	{intent: IntentGreeting, match: matches(greetingPattern), handle: (*Dispatcher).handleGreeting},
	{intent: IntentSocial, match: matches(socialPattern), handle: (*Dispatcher).handleSocial},
	{intent: IntentFallback, match: always, handle: (*Dispatcher).handleFallback},
}

func matches(re *regexp.Regexp) func(*request) bool {
	return func(req *request) bool { return re.MatchString(req.text) }
}

func capture(re *regexp.Regexp) func(*request) bool {
	return func(req *request) bool {
		req.groups = re.FindStringSubmatch(req.text)
		return req.groups != nil
	}
}

func matchViewCart(req *request) bool {
	if req.cart == nil {
		return false
	}
	return req.text == "cart" || viewCartPattern.MatchString(req.text)
}

func matchMenu(req *request) bool {
	return req.runes < menuMaxRunes && menuPattern.MatchString(req.text)
}

func always(*request) bool { return true }

// itemPhrase returns the first capture group, trimmed.
func (req *request) itemPhrase() string {
	if len(req.groups) < 2 {
		return ""
	}
	return trimPhrase(req.groups[1])
}

func (d *Dispatcher) handleOrder(req *request) Outcome {
	phrase := req.itemPhrase()
	m, ok := matcher.FindClosest(phrase, d.catalog)
	if !ok {
		logging.DispatchDebug("order phrase %q matched nothing", phrase)
		return Outcome{Text: d.orderNotFound(phrase)}
	}
	logging.DispatchDebug("order phrase %q matched %s (distance %d)", phrase, m.Key, m.Distance)
	return Outcome{
		Text:   d.orderConfirmation(m),
		Action: Action{Kind: ActionAddToCart, Item: m.Item, Qty: 1},
	}
}

func (d *Dispatcher) handlePrice(req *request) Outcome {
	phrase := req.itemPhrase()
	m, ok := matcher.FindClosest(phrase, d.catalog)
	if !ok {
		return Outcome{Text: d.priceNotFound(phrase)}
	}
	return Outcome{Text: d.priceAnswer(m.Item)}
}

func (d *Dispatcher) handleCheckout(*request) Outcome {
	return Outcome{
		Text: checkoutText,
		Action: Action{
			Kind:   ActionNavigate,
			Target: d.catalog.Pages().Payment,
			Delay:  CheckoutDelay,
		},
	}
}

func (d *Dispatcher) handleViewCart(req *request) Outcome {
	return Outcome{
		Text:   d.CartSummary(req.cart.Lines()),
		Action: Action{Kind: ActionReadCart},
	}
}

func (d *Dispatcher) handleAbout(*request) Outcome {
	return Outcome{Text: d.aboutText()}
}

func (d *Dispatcher) handleLocations(*request) Outcome {
	return Outcome{Text: d.locationsText()}
}

func (d *Dispatcher) handleMenu(*request) Outcome {
	return Outcome{Text: d.menuText}
}

func (d *Dispatcher) handleHelp(*request) Outcome {
	return Outcome{Text: d.helpText()}
}

func (d *Dispatcher) handleClearCart(*request) Outcome {
	return Outcome{Text: clearedText, Action: Action{Kind: ActionClearCart}}
}

func (d *Dispatcher) handleGreeting(*request) Outcome {
	return Outcome{Text: d.greetingText()}
}

func (d *Dispatcher) handleSocial(*request) Outcome {
	return Outcome{Text: d.socialText()}
}

func (d *Dispatcher) handleFallback(*request) Outcome {
	return Outcome{Text: fallbackText}
}
