// Package app wires the gateway services together.
package app

import (
	"github.com/blade-dance/gateway/internal/app/services/auth"
	"github.com/blade-dance/gateway/internal/app/services/trading"
	"github.com/blade-dance/gateway/internal/app/storage"
	"github.com/blade-dance/gateway/internal/config"
	"github.com/blade-dance/gateway/internal/market"
	"github.com/blade-dance/gateway/pkg/logger"
)

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Auth    *auth.Service
	Trading *trading.Service
	Market  *market.Client
}

// Options override default collaborators. Nil fields take the defaults.
type Options struct {
	Store     storage.SocialStore
	Registry  auth.HolderRegistry
	Portfolio trading.PortfolioFetcher
}

// New builds a fully initialised application from configuration.
func New(cfg *config.Config, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.New("app", cfg.LogLevel)
	}

	catalog, err := cfg.LoadTierCatalog()
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry, err = cfg.LoadHolderRegistry()
		if err != nil {
			return nil, err
		}
	}

	store := opts.Store
	if store == nil {
		store = storage.NewMemory()
	}

	marketClient := market.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, log)

	var portfolio trading.PortfolioFetcher = marketClient
	if opts.Portfolio != nil {
		portfolio = opts.Portfolio
	}

	authService := auth.New(registry, catalog, []byte(cfg.JWTSecret), cfg.TokenTTL, log)
	tradingService := trading.New(store, authService, authService, portfolio, log)

	return &Application{
		log:     log,
		Auth:    authService,
		Trading: tradingService,
		Market:  marketClient,
	}, nil
}
