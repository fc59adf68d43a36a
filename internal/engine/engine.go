// Package engine assembles the trading components from configuration. Every
// command bootstraps through here so the wiring exists in exactly one place.
package engine

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/chain"
	"github.com/nadfun-trader/internal/config"
	"github.com/nadfun-trader/internal/executor"
	"github.com/nadfun-trader/internal/liquidate"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/marketapi"
	"github.com/nadfun-trader/internal/pnl"
	"github.com/nadfun-trader/internal/position"
	"github.com/nadfun-trader/internal/quote"
	"github.com/nadfun-trader/internal/scan"
	"github.com/nadfun-trader/internal/tokenmeta"
)

// Engine holds the assembled components for one command invocation.
type Engine struct {
	Cfg    *config.Config
	Chain  *chain.Client
	API    *marketapi.Client
	Repo   position.Repository
	Quoter *quote.Client
	Meta   *tokenmeta.Resolver

	cache *tokenmeta.RedisCache
}

// Bootstrap loads configuration and connects everything. Configuration and
// connection failures here are setup errors; commands exit nonzero on them
// before any trade is attempted.
func Bootstrap(ctx context.Context) (*Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)

	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID)
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	e := &Engine{
		Cfg:   cfg,
		Chain: chainClient,
		API:   marketapi.NewClient(cfg.MarketAPI.APIURL, cfg.MarketAPI.BaseURL, cfg.MarketAPI.Timeout),
		Repo:  repo,
	}

	if cfg.Cache.Enabled {
		cache, err := tokenmeta.NewRedisCache(&cfg.Cache)
		if err != nil {
			// Metadata caching is an optimization; run without it.
			logging.GetGlobalLogger().WithError(err).Warn("Redis unavailable, metadata cache disabled")
		} else {
			e.cache = cache
		}
	}
	e.Meta = tokenmeta.NewResolver(chainClient, e.cache, cfg.Cache.TTL)
	e.Quoter = quote.New(chainClient, e.API, cfg.Routers)

	return e, nil
}

func openRepository(cfg *config.Config) (position.Repository, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return position.NewPostgresRepository(&cfg.Database.Postgres)
	case "file":
		return position.NewFileRepository(cfg.Store.Path), nil
	default:
		return nil, fmt.Errorf("unknown positions backend %q", cfg.Store.Backend)
	}
}

// Close releases all connections.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
	if e.Repo != nil {
		e.Repo.Close()
	}
	if e.Chain != nil {
		e.Chain.Close()
	}
}

// Signer returns the configured key and wallet address.
func (e *Engine) Signer() (*ecdsa.PrivateKey, common.Address, error) {
	return e.Cfg.Signer()
}

// Executor builds a trade executor for the configured wallet.
func (e *Engine) Executor() (*executor.Executor, common.Address, error) {
	key, wallet, err := e.Signer()
	if err != nil {
		return nil, common.Address{}, err
	}
	exec := executor.New(e.Chain, e.Quoter, e.Meta, e.Repo, e.Cfg.Routers, e.Cfg.Trading, key, wallet)
	return exec, wallet, nil
}

// Evaluator builds a P&L evaluator.
func (e *Engine) Evaluator() *pnl.Evaluator {
	return pnl.New(e.API, e.Chain, e.Quoter, e.Meta, e.Repo,
		e.Cfg.Trading.TakeProfitPercent, e.Cfg.Trading.StopLossPercent)
}

// Liquidator builds a liquidation driver over the given executor.
func (e *Engine) Liquidator(exec *executor.Executor) *liquidate.Driver {
	return liquidate.New(exec, e.Cfg.Trading.SellPacing)
}

// Scanner builds a market scanner.
func (e *Engine) Scanner() *scan.Scanner {
	return scan.New(e.API)
}
