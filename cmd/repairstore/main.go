// Package main reconciles the position store against on-chain balances:
// positions whose balance reads as zero are dropped, stale balances are
// refreshed, and a corrupt document is rebuilt from scratch.
//
// Usage: repair-store [--dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/position"
	"github.com/nadfun-trader/internal/quote"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Report repairs without writing")
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

	_, wallet, err := eng.Signer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	positions, err := eng.Repo.List(ctx)
	if err != nil {
		logger.WithError(err).Error("Store read failed")
		os.Exit(1)
	}
	if len(positions) == 0 {
		fmt.Println("Store is empty, nothing to repair.")
		return
	}

	var kept []position.Position
	var stale []common.Address
	for _, pos := range positions {
		if !common.IsHexAddress(pos.Address) {
			logger.WithField("address", pos.Address).
				Warn("Entry has a malformed address; edit the store by hand to clear it")
			continue
		}
		token := common.HexToAddress(pos.Address)

		balance, err := eng.Chain.TokenBalance(ctx, token, wallet)
		if err != nil {
			logger.WithField("token", token.Hex()).WithError(err).
				Warn("Balance read failed, keeping entry as-is")
			kept = append(kept, pos)
			continue
		}
		if balance.Sign() == 0 {
			logger.WithField("token", token.Hex()).Info("Dropping entry with zero balance")
			stale = append(stale, token)
			continue
		}

		meta := eng.Meta.Resolve(ctx, token)
		pos.Balance = quote.UnitsToFloat(balance, meta.Decimals)
		kept = append(kept, pos)
	}

	fmt.Printf("Checked %d entries: keeping %d, dropping %d.\n", len(positions), len(kept), len(stale))

	if *dryRun {
		fmt.Println("Dry run: store not modified.")
		return
	}
	for _, token := range stale {
		if err := eng.Repo.Remove(ctx, token); err != nil {
			logger.WithField("token", token.Hex()).WithError(err).Error("Store remove failed")
			os.Exit(1)
		}
	}
	if err := eng.Repo.SaveSnapshot(ctx, wallet.Hex(), "repair", kept); err != nil {
		logger.WithError(err).Error("Store write failed")
		os.Exit(1)
	}
	fmt.Println("Store repaired.")
}
