// Package server exposes the CoffeBuck storefront over HTTP: the chat proxy,
// the local assistant, the menu, carts and accounts, plus the static site.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"coffebuck/internal/assistant"
	"coffebuck/internal/auth"
	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/config"
	"coffebuck/internal/logging"
	"coffebuck/internal/proxy"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"
)

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Catalog catalog.Source
	Carts   cart.Store
	Proxy   *proxy.Service
	// Auth may be nil, which disables the account routes and checkout.
	Auth    *auth.Service
	TaxRate float64
}

// Server is the HTTP surface.
type Server struct {
	cfg       config.ServerConfig
	catalog   catalog.Source
	carts     cart.Store
	assistant *assistant.Assistant
	proxy     *proxy.Service
	auth      *auth.Service
	taxRate   float64

	engine *gin.Engine
}

// New builds the gin engine and registers every route.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.TaxRate == 0 {
		deps.TaxRate = cart.DefaultTaxRate
	}
	s := &Server{
		cfg:       cfg,
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		assistant: assistant.New(deps.Catalog, deps.Carts),
		proxy:     deps.Proxy,
		auth:      deps.Auth,
		taxRate:   deps.TaxRate,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the engine for use with httptest or a custom listener.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	_ = r.SetTrustedProxies(nil)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", sessionHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(s.identify())
	{
		api.POST("/chat", s.chat)
		api.POST("/assistant", s.ask)
		api.GET("/menu", s.menu)

		carts := api.Group("/cart")
		carts.Use(requireCartKey())
		{
			carts.GET("", s.viewCart)
			carts.DELETE("", s.clearCart)
			carts.POST("/items", s.addItem)
			carts.PATCH("/items/:id", s.updateItem)
			carts.DELETE("/items/:id", s.removeItem)
		}

		if s.auth != nil {
			carts.POST("/checkout", requireUser(), s.checkout)

			accounts := api.Group("/auth")
			{
				accounts.POST("/signup", s.signup)
				accounts.POST("/login", s.login)
				accounts.GET("/me", requireUser(), s.me)
			}
		}
	}

	r.NoRoute(s.static())
	return r
}

// static serves the storefront pages for unmatched GET requests.
func (s *Server) static() gin.HandlerFunc {
	var files http.Handler
	if s.cfg.StaticDir != "" {
		files = http.FileServer(http.Dir(s.cfg.StaticDir))
	}
	return func(c *gin.Context) {
		if files == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, at most cfg.MaxConnections at a time,
// and shuts down gracefully when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	logging.HTTP("Listening on %s", ln.Addr())

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	logging.HTTP("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errChan
}

func (s *Server) shutdownTimeout() time.Duration {
	d, err := time.ParseDuration(s.cfg.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.HTTP("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
