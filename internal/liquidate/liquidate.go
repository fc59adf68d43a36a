// Package liquidate drives automated sells off P&L assessments. One failed
// sell never stops the sweep; every remaining candidate still gets its turn.
package liquidate

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/types"
)

// Seller liquidates a token position. A nil amount sells the full balance.
type Seller interface {
	Sell(ctx context.Context, token common.Address, amountIn *big.Int, slippageBps int64) (*types.TxResult, error)
}

// Options controls one liquidation sweep.
type Options struct {
	AutoSell    bool // execute sells; otherwise report only
	DryRun      bool // log intended sells without submitting or mutating
	SlippageBps int64
}

// Result summarizes one sweep.
type Result struct {
	Candidates int // positions whose action was a sell
	Sold       int
	Failed     int
}

// Driver executes liquidation sweeps.
type Driver struct {
	seller  Seller
	limiter *rate.Limiter
}

// New creates a driver. pacing bounds how fast consecutive sells are
// submitted; the venues rate-limit aggressive callers.
func New(seller Seller, pacing time.Duration) *Driver {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(pacing), 1)
	}
	return &Driver{seller: seller, limiter: limiter}
}

// Run walks the assessments and liquidates every position classified as a
// sell. In dry-run or report-only mode nothing is submitted and no state
// changes; the return value still counts what would have been sold.
func (d *Driver) Run(ctx context.Context, assessments []types.Assessment, opts Options) (*Result, error) {
	logger := logging.FromContext(ctx)
	result := &Result{}

	for _, a := range assessments {
		if !a.Action.IsSell() {
			continue
		}
		result.Candidates++

		sellLogger := logger.WithFields(map[string]interface{}{
			"token":  a.Token.Hex(),
			"symbol": a.Symbol,
			"pnl":    a.PnLPercent,
			"reason": string(a.Action),
		})

		if !opts.AutoSell || opts.DryRun {
			sellLogger.Info("Sell signal (not executing)")
			continue
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return result, err
		}

		if _, err := d.seller.Sell(ctx, a.Token, nil, opts.SlippageBps); err != nil {
			sellLogger.WithError(err).Error("Sell failed, continuing sweep")
			result.Failed++
			continue
		}
		sellLogger.Info("Position liquidated")
		result.Sold++
	}

	logger.WithFields(map[string]interface{}{
		"candidates": result.Candidates,
		"sold":       result.Sold,
		"failed":     result.Failed,
	}).Info("Liquidation sweep complete")

	return result, nil
}
