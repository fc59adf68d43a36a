// Package main runs one full autonomous trading cycle: evaluate and
// liquidate existing positions, scan the market for fresh bonding-curve
// tokens, buy the top scorers, and snapshot the resulting portfolio.
//
// Usage: cycle [--buy-amount MON] [--max-buys N] [--min-score N] [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/liquidate"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/pnl"
	"github.com/nadfun-trader/internal/quote"
	"github.com/nadfun-trader/internal/scan"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	var (
		buyAmount = flag.Float64("buy-amount", 0.15, "Native amount to spend per buy")
		maxBuys   = flag.Int("max-buys", 5, "Maximum number of buys per cycle")
		minScore  = flag.Int("min-score", 50, "Minimum candidate score to buy")
		dryRun    = flag.Bool("dry-run", false, "Evaluate and scan without trading")
	)
	flag.Parse()

	ctx := context.Background()
	eng, err := engine.Bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	logger := logging.GetGlobalLogger()
	ctx = logging.WithLogger(ctx, logger)

	exec, wallet, err := eng.Executor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	cycle := uuid.New().String()
	logger.WithFields(map[string]interface{}{
		"wallet": wallet.Hex(),
		"cycle":  cycle,
	}).Info("Trading cycle starting")

	// Step 1: evaluate open positions and liquidate the ones past a threshold.
	assessments, err := eng.Evaluator().Evaluate(ctx, wallet)
	if err != nil {
		logger.WithError(err).Error("Evaluation failed")
		os.Exit(1)
	}
	if _, err := eng.Liquidator(exec).Run(ctx, assessments, liquidate.Options{
		AutoSell:    true,
		DryRun:      *dryRun,
		SlippageBps: eng.Cfg.Trading.SellSlippageBps,
	}); err != nil {
		logger.WithError(err).Error("Liquidation sweep aborted")
		os.Exit(1)
	}

	// Step 2: discover and score fresh bonding-curve tokens.
	scanner := eng.Scanner()
	tokens, err := scanner.BondingTokens(ctx)
	if err != nil {
		logger.WithError(err).Error("Market scan failed")
		os.Exit(1)
	}
	candidates, err := scanner.Score(ctx, tokens)
	if err != nil {
		logger.WithError(err).Error("Candidate scoring failed")
		os.Exit(1)
	}
	for i, c := range candidates {
		if i == 10 {
			break
		}
		fmt.Printf("%s: score %d | %.0f MON | %dH | vol %.0f | %+.1f%%\n",
			c.Symbol, c.Score, c.Liquidity, c.Holders, c.Volume, c.Percent)
	}

	// Step 3: buy the top scorers, skipping tokens already held.
	held := make(map[string]bool, len(assessments))
	for _, a := range assessments {
		held[strings.ToLower(a.Token.Hex())] = true
	}
	fresh := candidates[:0]
	for _, c := range candidates {
		if !held[strings.ToLower(c.Address)] {
			fresh = append(fresh, c)
		}
	}
	targets := scan.Select(fresh, *minScore, *maxBuys)
	if len(targets) == 0 {
		logger.Info("No candidates met the score floor this cycle")
	}
	for i, target := range targets {
		targetLogger := logger.WithFields(map[string]interface{}{
			"token":  target.Address,
			"symbol": target.Symbol,
			"score":  target.Score,
		})
		if *dryRun {
			targetLogger.Info("Buy signal (dry run)")
			continue
		}
		if i > 0 {
			time.Sleep(eng.Cfg.Trading.SellPacing)
		}
		token := common.HexToAddress(target.Address)
		if _, err := exec.Buy(ctx, token, quote.NativeToWei(*buyAmount), eng.Cfg.Trading.SlippageBps); err != nil {
			targetLogger.WithError(err).Error("Buy failed, continuing cycle")
			continue
		}
		targetLogger.Info("Bought candidate")
	}

	// Step 4: snapshot the final portfolio.
	final, err := eng.Evaluator().Evaluate(ctx, wallet)
	if err != nil {
		logger.WithError(err).Error("Final evaluation failed")
		os.Exit(1)
	}
	if !*dryRun {
		if err := eng.Repo.SaveSnapshot(ctx, wallet.Hex(), cycle, pnl.ToPositions(final)); err != nil {
			logger.WithError(err).Error("Snapshot save failed")
		}
	}

	totalInvested := 0.0
	for _, a := range final {
		if a.EntryKnown {
			totalInvested += a.EntryValue
		}
		fmt.Printf("%s: %.2f tokens | %.4f MON value | P&L %+.2f%%\n",
			a.Symbol, a.BalanceHuman, a.CurrentValue, a.PnLPercent)
	}
	fmt.Printf("Active positions: %d | invested: %.2f MON\n", len(final), totalInvested)

	logger.WithField("cycle", cycle).Info("Trading cycle complete")
}
