// Package main sells a nad.fun token position, in full or in part.
//
// Usage: sell --token <address> [--amount all|N] [--slippage bps]
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/quote"
)

func main() {
	var (
		tokenFlag    = flag.String("token", "", "Token address to sell")
		amountFlag   = flag.String("amount", "all", "Token amount to sell, or 'all'")
		slippageFlag = flag.Int64("slippage", -1, "Slippage tolerance in basis points")
	)
	flag.Parse()

	if !common.IsHexAddress(*tokenFlag) {
		fmt.Fprintln(os.Stderr, "Error: --token must be a valid address")
		os.Exit(1)
	}
	token := common.HexToAddress(*tokenFlag)

	// nil amount means the full balance
	var amount *big.Int
	if !strings.EqualFold(*amountFlag, "all") {
		parsed, ok := new(big.Float).SetString(*amountFlag)
		if !ok || parsed.Sign() <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --amount must be 'all' or a positive number")
			os.Exit(1)
		}
		f, _ := parsed.Float64()
		amount = quote.NativeToWei(f)
	}

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

	logger.WithFields(map[string]interface{}{
		"wallet":   wallet.Hex(),
		"token":    token.Hex(),
		"amount":   *amountFlag,
		"slippage": slippage,
	}).Info("Selling token")

	result, err := exec.Sell(ctx, token, amount, slippage)
	if err != nil {
		logger.WithError(err).Error("Sell failed")
		os.Exit(1)
	}

	fmt.Printf("Sell confirmed in block %d: %s\n", result.BlockNumber, result.Hash.Hex())
}
