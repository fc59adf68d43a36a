// Package main buys a nad.fun token for a fixed amount of native currency.
//
// Usage: buy <token> <amount> [--slippage=bps]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/engine"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/quote"
)

func main() {
	token, amount, slippage, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: buy <token> <amount> [--slippage=bps]")
		os.Exit(1)
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

	if slippage < 0 {
		slippage = eng.Cfg.Trading.SlippageBps
	}

	exec, wallet, err := eng.Executor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(map[string]interface{}{
		"wallet":   wallet.Hex(),
		"token":    token.Hex(),
		"amount":   amount,
		"slippage": slippage,
	}).Info("Buying token")

	result, err := exec.Buy(ctx, token, quote.NativeToWei(amount), slippage)
	if err != nil {
		logger.WithError(err).Error("Buy failed")
		os.Exit(1)
	}

	fmt.Printf("Buy confirmed in block %d: %s\n", result.BlockNumber, result.Hash.Hex())
}

// parseArgs accepts the slippage flag before, between or after the two
// positional arguments.
func parseArgs(args []string) (common.Address, float64, int64, error) {
	var positional []string
	slippage := int64(-1)

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--slippage="):
			v, err := strconv.ParseInt(strings.TrimPrefix(arg, "--slippage="), 10, 64)
			if err != nil || v < 0 || v >= 10000 {
				return common.Address{}, 0, 0, fmt.Errorf("slippage must be an integer in [0, 10000)")
			}
			slippage = v
		case strings.HasPrefix(arg, "-"):
			return common.Address{}, 0, 0, fmt.Errorf("unknown flag %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) != 2 {
		return common.Address{}, 0, 0, fmt.Errorf("expected <token> and <amount>")
	}
	if !common.IsHexAddress(positional[0]) {
		return common.Address{}, 0, 0, fmt.Errorf("malformed token address %s", positional[0])
	}
	amount, err := strconv.ParseFloat(positional[1], 64)
	if err != nil || amount <= 0 {
		return common.Address{}, 0, 0, fmt.Errorf("amount must be a positive number")
	}

	return common.HexToAddress(positional[0]), amount, slippage, nil
}
