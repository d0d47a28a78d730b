package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"coffebuck/cmd/coffebuck/chat"
	"coffebuck/internal/assistant"
	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/proxy"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askPlain  bool
	askLLM    bool
	menuPlain bool
)

// chatCmd starts the interactive assistant
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the shopping assistant in the terminal",
	Long: `Opens a full-screen chat with the CoffeBuck assistant. Orders go into an
in-memory cart that lasts for the session.

Commands: /cart, /clear, /help, /quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

// askCmd answers a single message
var askCmd = &cobra.Command{
	Use:   "ask [message...]",
	Short: "Ask the assistant one question",
	Long: `Sends one message to the local assistant (or, with --llm, to the configured
LLM upstream) and prints the answer.

Examples:
  coffebuck ask how much is a cappuccino
  coffebuck ask --llm what goes well with a cold brew`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// menuCmd prints the catalog
var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Print the menu",
	Args:  cobra.NoArgs,
	RunE:  runMenu,
}

func runChat(cmd *cobra.Command, args []string) error {
	source, _, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	store := cart.NewMemoryStore()
	session := uuid.New().String()
	logger.Debug("starting chat", zap.String("session", session))

	return chat.Run(chat.Config{
		Assistant: assistant.New(source, store),
		Store:     store,
		Session:   session,
		Title:     cfg.Name,
	})
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := joinArgs(args)

	var answer string
	if askLLM {
		upstream, err := newUpstream(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		answer, err = proxy.Ask(cmd.Context(), upstream, question)
		if errors.Is(err, proxy.ErrNotConfigured) {
			return errors.New(upstream.MissingKeyMessage())
		}
		if err != nil {
			return err
		}
	} else {
		source, _, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		reply, err := assistant.New(source, cart.NewMemoryStore()).Handle(cmd.Context(), uuid.New().String(), question)
		if err != nil {
			return err
		}
		logger.Debug("dispatched", zap.String("intent", string(reply.Intent)), zap.String("action", string(reply.Action)))
		answer = reply.Text
		if reply.Navigate != nil {
			answer += fmt.Sprintf("\n\n_(the storefront would now open %s)_", reply.Navigate.Target)
		}
	}

	return printMarkdown(cmd.OutOrStdout(), answer, askPlain)
}

func runMenu(cmd *cobra.Command, args []string) error {
	source, _, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	return printMarkdown(cmd.OutOrStdout(), menuMarkdown(source.Current()), menuPlain)
}

func menuMarkdown(c *catalog.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Menu\n", c.Profile().Name)
	for _, section := range c.ByCategory() {
		fmt.Fprintf(&b, "\n## %s\n\n| Item | Price | |\n|---|---:|---|\n", section.Category.Label)
		for _, item := range section.Items {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", item.Name, c.FormatPrice(item.Price), item.Description)
		}
	}
	return b.String()
}

func printMarkdown(w io.Writer, text string, plain bool) error {
	if !plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err == nil {
			if out, err := r.Render(text); err == nil {
				text = out
			}
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	return err
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
