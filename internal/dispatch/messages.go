package dispatch

import (
	"fmt"
	"strings"

	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/matcher"
)

const (
	checkoutText  = "Great! Taking you to checkout. 💳"
	emptyCartText = "Your cart is empty. 🛒 What can I get for you?"
	clearedText   = "Your cart has been cleared. 🗑️ Ready to order again?"

	fallbackText = "I'm not sure I caught that! 🤔 Try asking me about:\n\n" +
		"• **Items:** \"Add Cappuccino to cart\" or \"How much is Matcha Latte?\"\n" +
		"• **Info:** \"About CoffeBuck\", \"Where are you?\", \"Show me the menu\"\n" +
		"• **Help:** \"How do I order?\" or \"Show my cart\"\n\n" +
		"What can I help you with?"

	aboutClosing = "We partner with ethical farms, prioritize sustainability, and craft every cup with love. " +
		"Our cafes are warm, welcoming havens — a space to slow down and connect. ❤️"
)

// FallbackText is the response to input no rule recognizes.
func FallbackText() string { return fallbackText }

func (d *Dispatcher) price(amount int) string {
	return d.catalog.FormatPrice(amount)
}

func (d *Dispatcher) orderConfirmation(m matcher.Result) string {
	var b strings.Builder
	if !m.Exact() {
		fmt.Fprintf(&b, "Did you mean **%s**? (%d chars off) Adding to cart...\n\n", m.Item.Name, m.Distance)
	}
	fmt.Fprintf(&b, "✓ Added **%s** (%s) to your cart.", m.Item.Name, d.price(m.Item.Price))
	return b.String()
}

func (d *Dispatcher) orderNotFound(phrase string) string {
	return fmt.Sprintf("Hmm, I couldn't find \"%s\" on our menu. 🤔 Try asking for items like %s. What can I get you?",
		phrase, d.suggestions())
}

func (d *Dispatcher) priceAnswer(item catalog.MenuItem) string {
	return fmt.Sprintf("**%s** costs %s. %s", item.Name, d.price(item.Price), item.Description)
}

func (d *Dispatcher) priceNotFound(phrase string) string {
	return fmt.Sprintf("I couldn't find \"%s\" on our menu. Try asking about items like %s!", phrase, d.suggestions())
}

// suggestions names the first item of each category, e.g.
// "Espresso, Caramel Macchiato, Iced Latte, or Classic Tea".
func (d *Dispatcher) suggestions() string {
	var names []string
	for _, s := range d.catalog.ByCategory() {
		names = append(names, s.Items[0].Name)
	}
	if len(names) == 0 {
		d.catalog.Each(func(item catalog.MenuItem) {
			if len(names) < 3 {
				names = append(names, item.Name)
			}
		})
	}
	return joinOr(names)
}

func joinOr(names []string) string {
	switch len(names) {
	case 0:
		return "our house specials"
	case 1:
		return names[0]
	case 2:
		return names[0] + " or " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
}

// CartSummary renders cart lines with line totals and a subtotal. Tax is not
// applied here.
func (d *Dispatcher) CartSummary(lines []cart.Line) string {
	if len(lines) == 0 {
		return emptyCartText
	}
	var b strings.Builder
	b.WriteString("**Your Cart:**\n")
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s x%d = %s\n", i+1, l.Name, l.Qty, d.price(l.Total()))
	}
	fmt.Fprintf(&b, "\n**Subtotal:** %s", d.price(cart.Subtotal(lines)))
	return b.String()
}

func (d *Dispatcher) aboutText() string {
	p := d.catalog.Profile()
	return fmt.Sprintf("☕ **About %s**\n\n%s\n\n%s", p.Name, p.About, aboutClosing)
}

func (d *Dispatcher) locationsText() string {
	var b strings.Builder
	b.WriteString("🏪 **Our Locations:**\n\n")
	for _, loc := range d.catalog.Profile().Locations {
		fmt.Fprintf(&b, "**%s** - %s\nHours: %s\n\n", loc.Name, loc.City, loc.Hours)
	}
	fmt.Fprintf(&b, "Visit our [Store Locator](%s) for more details!", d.catalog.Pages().StoreLocator)
	return b.String()
}

func (d *Dispatcher) renderMenu() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **%s Menu:**\n\n", d.catalog.Profile().Name)
	for _, s := range d.catalog.ByCategory() {
		entries := make([]string, len(s.Items))
		for i, item := range s.Items {
			entries[i] = fmt.Sprintf("%s (%s)", item.Name, d.price(item.Price))
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", s.Category.Label, strings.Join(entries, ", "))
	}
	fmt.Fprintf(&b, "View our full [Menu](%s) for more!", d.catalog.Pages().Menu)
	return b.String()
}

func (d *Dispatcher) helpText() string {
	pages := d.catalog.Pages()
	name := d.catalog.Profile().Name
	return fmt.Sprintf("🎯 **How to Use %s:**\n\n"+
		"1. **Browse** our [Menu](%s) or ask me about items.\n"+
		"2. **Order** by saying \"add Espresso to cart\" or \"I want a Cappuccino\".\n"+
		"3. **Review** your cart — just ask \"show me my cart\".\n"+
		"4. **Checkout** — say \"checkout\" or visit [Payment](%s).\n"+
		"5. **Connect** via our [Contact](%s) page if you have questions.\n\n"+
		"I'm here as your digital waiter, receptionist, and assistant! 👋",
		name, pages.Menu, pages.Payment, pages.Contact)
}

func (d *Dispatcher) greetingText() string {
	return fmt.Sprintf("Hello! 👋 I'm your **%s Digital Assistant**. I can:\n\n"+
		"✓ Help you **order** items from our menu\n"+
		"✓ Tell you about **pricing** and our coffee brews\n"+
		"✓ Answer questions about **%s** and its story\n"+
		"✓ Show you **locations** and hours\n"+
		"✓ Guide you through the **checkout** process\n"+
		"✓ Manage your **cart**\n\n"+
		"What can I get for you today? ☕",
		d.catalog.Profile().Name, d.catalog.Profile().Name)
}

func (d *Dispatcher) socialText() string {
	var b strings.Builder
	b.WriteString("📱 **Connect With Us:**\n\n")
	for _, link := range d.catalog.Profile().Social {
		fmt.Fprintf(&b, "%s [%s](%s)", socialIcon(link.Name), link.Name, link.URL)
		if link.Handle != "" {
			fmt.Fprintf(&b, " - %s", link.Handle)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nOr visit our [Contact](%s) page to send us a message! We'd love to hear from you. ❤️",
		d.catalog.Pages().Contact)
	return b.String()
}

func socialIcon(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "instagram"):
		return "🔷"
	case strings.Contains(n, "twitter"), n == "x":
		return "🐦"
	case strings.Contains(n, "facebook"):
		return "📘"
	default:
		return "🔗"
	}
}

func trimPhrase(s string) string {
	return strings.TrimSpace(s)
}
