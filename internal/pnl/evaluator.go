// Package pnl evaluates open positions: it reconciles API-reported holdings
// against on-chain balances, values each position, computes profit and loss
// against the recorded entry, and classifies what to do with it.
package pnl

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/marketapi"
	"github.com/nadfun-trader/internal/position"
	"github.com/nadfun-trader/internal/quote"
	"github.com/nadfun-trader/internal/tokenmeta"
	"github.com/nadfun-trader/internal/types"
)

// HoldingsSource lists the wallet's token holdings.
type HoldingsSource interface {
	Holdings(ctx context.Context, wallet string) ([]marketapi.Holding, error)
}

// BalanceReader reads on-chain token balances.
type BalanceReader interface {
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Valuer prices a token balance in native currency.
type Valuer interface {
	SellValue(ctx context.Context, token common.Address, balance *big.Int, decimals uint8) (float64, types.DataSource, error)
}

// MetaResolver resolves token metadata.
type MetaResolver interface {
	Resolve(ctx context.Context, token common.Address) tokenmeta.Meta
}

// Evaluator runs one P&L pass over the wallet's holdings.
type Evaluator struct {
	holdings   HoldingsSource
	chain      BalanceReader
	valuer     Valuer
	meta       MetaResolver
	repo       position.Repository
	takeProfit float64
	stopLoss   float64
}

// New creates an evaluator. takeProfit and stopLoss are percent thresholds
// (+5 and -10 by default).
func New(holdings HoldingsSource, chain BalanceReader, valuer Valuer, meta MetaResolver, repo position.Repository, takeProfit, stopLoss float64) *Evaluator {
	return &Evaluator{
		holdings:   holdings,
		chain:      chain,
		valuer:     valuer,
		meta:       meta,
		repo:       repo,
		takeProfit: takeProfit,
		stopLoss:   stopLoss,
	}
}

// Evaluate assesses every holding of the wallet. The API holdings list is
// discovery only; the on-chain balance is authoritative, and holdings whose
// balance reads as zero are dropped silently. Unpriceable tokens are skipped
// without a trade decision.
func (e *Evaluator) Evaluate(ctx context.Context, wallet common.Address) ([]types.Assessment, error) {
	logger := logging.FromContext(ctx)

	holdings, err := e.holdings.Holdings(ctx, wallet.Hex())
	if err != nil {
		return nil, apperrors.NewProviderError("holdings api", err)
	}

	var assessments []types.Assessment
	for _, holding := range holdings {
		info := holding.TokenInfo
		if info == nil || !common.IsHexAddress(info.TokenID) {
			continue
		}
		token := common.HexToAddress(info.TokenID)
		tokenLogger := logger.WithField("token", token.Hex())

		balance, err := e.chain.TokenBalance(ctx, token, wallet)
		if err != nil {
			tokenLogger.WithError(err).Warn("Balance read failed, skipping token")
			continue
		}
		if balance.Sign() == 0 {
			continue
		}

		meta := e.resolveMeta(ctx, token, info)

		value, source, err := e.valuer.SellValue(ctx, token, balance, meta.Decimals)
		if err != nil {
			if apperrors.IsUnpriceable(err) {
				tokenLogger.Warn("Token unpriceable this cycle, skipping")
				continue
			}
			tokenLogger.WithError(err).Warn("Valuation failed, skipping token")
			continue
		}

		assessment := types.Assessment{
			Token:        token,
			Symbol:       meta.Symbol,
			Name:         meta.Name,
			Balance:      balance,
			BalanceHuman: quote.UnitsToFloat(balance, meta.Decimals),
			CurrentValue: value,
			Source:       source,
			EvaluatedAt:  time.Now().UTC(),
		}

		e.applyEntry(ctx, &assessment)
		assessment.Action = e.classify(assessment)

		assessments = append(assessments, assessment)

		tokenLogger.WithFields(map[string]interface{}{
			"symbol":     assessment.Symbol,
			"balance":    assessment.BalanceHuman,
			"value":      assessment.CurrentValue,
			"entry":      assessment.EntryValue,
			"entryKnown": assessment.EntryKnown,
			"pnl":        assessment.PnLPercent,
			"source":     string(assessment.Source),
			"action":     string(assessment.Action),
		}).Info("Position evaluated")
	}

	return assessments, nil
}

// resolveMeta reads metadata through the resolver, so decimals always come
// from the token contract, and layers the API-reported symbol and name on
// top when present.
func (e *Evaluator) resolveMeta(ctx context.Context, token common.Address, info *marketapi.TokenInfo) tokenmeta.Meta {
	meta := e.meta.Resolve(ctx, token)
	if info.Symbol != "" {
		meta.Symbol = info.Symbol
	}
	if info.Name != "" {
		meta.Name = info.Name
	}
	return meta
}

// applyEntry looks up the recorded cost basis. A position with no entry
// record carries an unknown basis: P&L is reported as zero and the entry
// value mirrors the current value for display, but no sell can trigger.
func (e *Evaluator) applyEntry(ctx context.Context, a *types.Assessment) {
	prev, err := e.repo.Get(ctx, a.Token)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Entry lookup failed, treating basis as unknown")
	}
	if prev != nil && prev.EntryKnown && prev.EntryValue > 0 {
		a.EntryValue = prev.EntryValue
		a.EntryKnown = true
		a.PnLPercent = PnLPercent(a.CurrentValue, a.EntryValue)
		return
	}
	a.EntryValue = a.CurrentValue
	a.EntryKnown = false
	a.PnLPercent = 0
}

// classify maps P&L to an action. An unknown cost basis always holds.
func (e *Evaluator) classify(a types.Assessment) types.Action {
	if !a.EntryKnown {
		return types.ActionHold
	}
	return Classify(a.PnLPercent, e.takeProfit, e.stopLoss)
}

// PnLPercent computes (current - entry) / entry * 100, or zero when the
// entry value is not positive.
func PnLPercent(current, entry float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (current - entry) / entry * 100
}

// Classify maps a P&L percentage to an action given the thresholds.
// Thresholds are inclusive on both sides.
func Classify(pnl, takeProfit, stopLoss float64) types.Action {
	switch {
	case pnl >= takeProfit:
		return types.ActionSellTakeProfit
	case pnl <= stopLoss:
		return types.ActionSellStopLoss
	default:
		return types.ActionHold
	}
}

// ToPositions converts assessments into store positions for a snapshot.
func ToPositions(assessments []types.Assessment) []position.Position {
	positions := make([]position.Position, 0, len(assessments))
	for _, a := range assessments {
		positions = append(positions, position.Position{
			Address:      a.Token.Hex(),
			Symbol:       a.Symbol,
			Name:         a.Name,
			Balance:      a.BalanceHuman,
			CurrentValue: a.CurrentValue,
			EntryValue:   a.EntryValue,
			EntryKnown:   a.EntryKnown,
			PnLPercent:   a.PnLPercent,
			DataSource:   a.Source,
			UpdatedAt:    a.EvaluatedAt,
		})
	}
	return positions
}
