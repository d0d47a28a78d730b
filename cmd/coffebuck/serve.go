package main

import (
	"os"
	"os/signal"
	"syscall"

	"coffebuck/internal/logging"
	"coffebuck/internal/proxy"
	"coffebuck/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront HTTP server",
	Long: `Serves the static site, the menu and cart API, accounts, the local
assistant and the LLM chat proxy until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	source, watcher, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	carts, err := openCarts(cfg)
	if err != nil {
		return err
	}
	defer carts.Close()

	users, err := openUsers(cfg)
	if err != nil {
		return err
	}
	defer users.Close()

	tokens, err := newTokenIssuer(cfg)
	if err != nil {
		return err
	}

	upstream, err := newUpstream(ctx, cfg)
	if err != nil {
		return err
	}
	if !upstream.Configured() {
		logging.BootWarn("%s", upstream.MissingKeyMessage())
		logger.Warn("chat proxy has no upstream key", zap.String("provider", upstream.Name()))
	}

	chat := proxy.NewService(upstream, cfg.Limits)
	srv := server.New(cfg.Server, server.Deps{
		Catalog: source,
		Carts:   carts,
		Proxy:   chat,
		Auth:    newAuthService(cfg, users, tokens),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Addr()) })
	g.Go(func() error { return chat.Limiter().Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	logger.Info("CoffeBuck serving",
		zap.String("addr", cfg.Addr()),
		zap.String("provider", upstream.Name()),
		zap.String("static", cfg.Server.StaticDir))
	logging.Boot("CoffeBuck %s serving on %s", cfg.Version, cfg.Addr())

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logging.Boot("Stopped")
	return nil
}
