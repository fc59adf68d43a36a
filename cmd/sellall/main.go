// Package main liquidates every open position regardless of P&L.
//
// Usage: sell-all [--slippage bps] [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/logging"
)

func main() {
	var (
		slippageFlag = flag.Int64("slippage", -1, "Slippage tolerance in basis points")
		dryRun       = flag.Bool("dry-run", false, "List positions without selling")
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

	slippage := *slippageFlag
	if slippage < 0 {
		slippage = eng.Cfg.Trading.SellSlippageBps
	}

	exec, wallet, err := eng.Executor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Liquidating all positions for wallet %s\n\n", wallet.Hex())

	assessments, err := eng.Evaluator().Evaluate(ctx, wallet)
	if err != nil {
		logger.WithError(err).Error("Evaluation failed")
		os.Exit(1)
	}
	if len(assessments) == 0 {
		fmt.Println("No open positions.")
		return
	}

	sold, failed := 0, 0
	for i, a := range assessments {
		fmt.Printf("%s: %.2f tokens | %.4f MON\n", a.Symbol, a.BalanceHuman, a.CurrentValue)
		if *dryRun {
			continue
		}
		if i > 0 {
			time.Sleep(eng.Cfg.Trading.SellPacing)
		}
		if _, err := exec.Sell(ctx, a.Token, nil, slippage); err != nil {
			logger.WithField("token", a.Token.Hex()).WithError(err).Error("Sell failed, continuing")
			failed++
			continue
		}
		sold++
	}

	if *dryRun {
		fmt.Printf("\nDry run: %d position(s) would be sold.\n", len(assessments))
		return
	}
	fmt.Printf("\nSold %d position(s), %d failed.\n", sold, failed)
}
