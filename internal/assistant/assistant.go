// Package assistant connects the intent dispatcher to a cart store, carrying
// out the side effects a response asks for.
package assistant

import (
	"context"
	"fmt"
	"sync"

	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/dispatch"
	"coffebuck/internal/logging"
)

// Navigate asks the shell to move to another page after a delay.
type Navigate struct {
	Target      string `json:"target"`
	DelayMillis int64  `json:"delay_ms"`
}

// Reply is the result of handling one message.
type Reply struct {
	Text     string              `json:"reply"`
	Intent   dispatch.Intent     `json:"intent"`
	Action   dispatch.ActionKind `json:"action,omitempty"`
	Added    *cart.Line          `json:"added,omitempty"`
	Navigate *Navigate           `json:"navigate,omitempty"`
}

// Assistant answers shopper messages against the current catalog snapshot.
type Assistant struct {
	source catalog.Source
	store  cart.Store

	mu   sync.Mutex
	disp *dispatch.Dispatcher
}

// New builds an assistant. store may be nil, in which case the assistant
// cannot read or change carts and cart phrases get informational answers.
func New(source catalog.Source, store cart.Store) *Assistant {
	return &Assistant{source: source, store: store}
}

// Dispatcher returns a dispatcher for the current catalog snapshot,
// rebuilding it when the snapshot has changed.
func (a *Assistant) Dispatcher() *dispatch.Dispatcher {
	c := a.source.Current()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disp == nil || a.disp.Catalog() != c {
		a.disp = dispatch.New(c)
	}
	return a.disp
}

// Handle dispatches input for session and performs any cart action. Cart
// failures are returned as errors; the text is still filled in when the
// dispatcher produced one.
func (a *Assistant) Handle(ctx context.Context, session, input string) (Reply, error) {
	d := a.Dispatcher()

	var reader dispatch.CartReader
	var lazy *lazyCart
	if a.store != nil && session != "" {
		lazy = &lazyCart{ctx: ctx, store: a.store, session: session}
		reader = lazy
	}

	out := d.Respond(input, reader)
	reply := Reply{Text: out.Text, Intent: out.Intent, Action: out.Action.Kind}
	logging.Dispatch("session=%s intent=%s action=%s", session, out.Intent, out.Action.Kind)
	audit := logging.AuditWithSession(session)
	audit.Dispatch(string(out.Intent), string(out.Action.Kind))

	if lazy != nil && lazy.err != nil {
		logging.CartError("read cart for %s: %v", session, lazy.err)
		return reply, fmt.Errorf("read cart: %w", lazy.err)
	}

	switch out.Action.Kind {
	case dispatch.ActionAddToCart:
		line := out.Action.Line()
		if reader != nil {
			err := a.store.AddItem(ctx, session, line)
			audit.CartOp(logging.AuditCartAdd, line.ID, line.Qty, err)
			if err != nil {
				return reply, fmt.Errorf("add to cart: %w", err)
			}
			logging.Cart("session=%s added %s x%d", session, line.ID, line.Qty)
		}
		reply.Added = &line
	case dispatch.ActionClearCart:
		if reader != nil {
			err := a.store.Clear(ctx, session)
			audit.CartOp(logging.AuditCartClear, "", 0, err)
			if err != nil {
				return reply, fmt.Errorf("clear cart: %w", err)
			}
			logging.Cart("session=%s cleared", session)
		}
	case dispatch.ActionNavigate:
		reply.Navigate = &Navigate{
			Target:      out.Action.Target,
			DelayMillis: out.Action.Delay.Milliseconds(),
		}
	}
	return reply, nil
}

// lazyCart reads the store on first use and remembers the outcome, so
// messages that never look at the cart never touch the store.
type lazyCart struct {
	ctx     context.Context
	store   cart.Store
	session string

	loaded bool
	lines  []cart.Line
	err    error
}

func (l *lazyCart) Lines() []cart.Line {
	if !l.loaded {
		l.lines, l.err = l.store.ReadAll(l.ctx, l.session)
		l.loaded = true
	}
	return l.lines
}
