// Package main evaluates P&L for every open position and optionally sells
// the ones that crossed the take-profit or stop-loss thresholds.
//
// Usage: check-pnl [--auto-sell] [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/liquidate"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/pnl"
	"github.com/nadfun-trader/internal/types"
)

func main() {
	var (
		autoSell = flag.Bool("auto-sell", false, "Execute sells for positions past a threshold")
		dryRun   = flag.Bool("dry-run", false, "Report only; no transactions, no store writes")
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

	fmt.Printf("Checking positions for wallet %s\n\n", wallet.Hex())

	assessments, err := eng.Evaluator().Evaluate(ctx, wallet)
	if err != nil {
		logger.WithError(err).Error("Evaluation failed")
		os.Exit(1)
	}
	if len(assessments) == 0 {
		fmt.Println("No open positions.")
		return
	}

	for _, a := range assessments {
		fmt.Println(formatAssessment(a))
	}

	if !*dryRun {
		cycle := uuid.New().String()
		if err := eng.Repo.SaveSnapshot(ctx, wallet.Hex(), cycle, pnl.ToPositions(assessments)); err != nil {
			logger.WithError(err).Error("Snapshot save failed")
		}
	}

	result, err := eng.Liquidator(exec).Run(ctx, assessments, liquidate.Options{
		AutoSell:    *autoSell,
		DryRun:      *dryRun,
		SlippageBps: eng.Cfg.Trading.SellSlippageBps,
	})
	if err != nil {
		logger.WithError(err).Error("Liquidation sweep aborted")
		os.Exit(1)
	}

	fmt.Printf("\nProcessed %d positions. %d position(s) meet sell criteria.\n",
		len(assessments), result.Candidates)
	if !*autoSell && result.Candidates > 0 {
		fmt.Println("Run with --auto-sell to execute sells automatically.")
	}
}

func formatAssessment(a types.Assessment) string {
	pnlStr := fmt.Sprintf("%+.2f%%", a.PnLPercent)
	entry := fmt.Sprintf("Entry: %.4f MON", a.EntryValue)
	if !a.EntryKnown {
		entry = "Entry: unknown"
	}

	var action string
	switch a.Action {
	case types.ActionSellTakeProfit:
		action = "SELL (take profit)"
	case types.ActionSellStopLoss:
		action = "SELL (stop loss)"
	default:
		action = "HOLD"
	}

	return fmt.Sprintf("%s: %.2f tokens | %.4f MON | %s | P&L %s (%s) | %s",
		a.Symbol, a.BalanceHuman, a.CurrentValue, entry, pnlStr, a.Source, action)
}
