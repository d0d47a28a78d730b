package main

import (
	"fmt"
	"os"

	"coffebuck/internal/config"
	"coffebuck/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "coffebuck",
	Short: "CoffeBuck storefront server and shopping assistant",
	Long: `CoffeBuck serves the coffee shop's storefront: the menu, carts, accounts,
a rule-based shopping assistant and a rate-limited LLM chat proxy.

Run "coffebuck serve" to start the HTTP server, or "coffebuck chat" to talk
to the assistant from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("APP_ENV") != "production" {
			_ = godotenv.Load()
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		// The chat TUI owns the terminal; it only logs when given a file.
		if cmd.Name() != "chat" || cfg.Logging.File != "" {
			if err := logging.Initialize(cfg.Logging.Options()); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
		}
		if err := logging.InitAudit(cfg.Storage.AuditPath); err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the config file")

	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Print raw markdown instead of rendering it")
	askCmd.Flags().BoolVar(&askLLM, "llm", false, "Ask the configured LLM upstream instead of the local assistant")
	menuCmd.Flags().BoolVar(&menuPlain, "plain", false, "Print raw markdown instead of rendering it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(menuCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
