package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"coffebuck/internal/auth"
	"coffebuck/internal/cart"
	"coffebuck/internal/catalog"
	"coffebuck/internal/config"
	"coffebuck/internal/logging"
	"coffebuck/internal/proxy"
)

// openCatalog returns the catalog source. The watcher is nil unless a
// catalog file is configured with watching enabled.
func openCatalog(c *config.Config) (catalog.Source, *catalog.Watcher, error) {
	if c.Catalog.Path == "" {
		return catalog.NewStatic(catalog.Default()), nil, nil
	}
	if c.Catalog.Watch {
		w, err := catalog.NewWatcher(c.Catalog.Path)
		if err != nil {
			return nil, nil, err
		}
		logging.Boot("Catalog %s loaded (%d items, watching)", c.Catalog.Path, w.Current().Len())
		return w, w, nil
	}
	cat, err := catalog.Load(c.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	logging.Boot("Catalog %s loaded (%d items)", c.Catalog.Path, cat.Len())
	return catalog.NewStatic(cat), nil, nil
}

func openCarts(c *config.Config) (cart.Store, error) {
	if c.Storage.DatabasePath == "" {
		return cart.NewMemoryStore(), nil
	}
	return cart.NewSQLiteStore(c.Storage.DatabasePath)
}

func openUsers(c *config.Config) (auth.Repository, error) {
	if c.Storage.UsersPath == "" {
		return auth.NewMemoryRepository(), nil
	}
	return auth.NewSQLiteRepository(c.Storage.UsersPath)
}

// newTokenIssuer signs with the configured secret, or with a random one
// when none is set. Tokens from a random secret do not survive a restart.
func newTokenIssuer(c *config.Config) (*auth.TokenIssuer, error) {
	secret := c.Auth.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logging.BootWarn("JWT_SECRET not set; using a random secret, sessions end on restart")
	}
	return auth.NewTokenIssuer(secret, c.GetTokenTTL())
}

func newUpstream(ctx context.Context, c *config.Config) (proxy.Upstream, error) {
	if c.LLM.Provider == config.ProviderGemini {
		return proxy.NewGeminiUpstream(ctx, c.LLM.GeminiAPIKey, c.LLM.GeminiModel)
	}

	orc := proxy.DefaultOpenRouterConfig(c.LLM.APIKey)
	if c.LLM.BaseURL != "" {
		orc.BaseURL = c.LLM.BaseURL
	}
	if c.LLM.Model != "" {
		orc.Model = c.LLM.Model
	}
	if c.LLM.Referer != "" {
		orc.SiteURL = c.LLM.Referer
	}
	if c.LLM.Title != "" {
		orc.SiteName = c.LLM.Title
	}
	orc.Timeout = c.GetUpstreamTimeout()
	return proxy.NewOpenRouterUpstream(orc), nil
}

func newAuthService(c *config.Config, users auth.Repository, tokens *auth.TokenIssuer) *auth.Service {
	return auth.NewService(users, tokens, c.Auth.BcryptCost)
}
