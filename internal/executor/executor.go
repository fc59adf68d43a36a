// Package executor submits buy and sell trades to the venue the quote
// resolved to, waits for one confirmation, and keeps the position store's
// entry bookkeeping in sync with confirmed trades.
package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/nadfun-trader/internal/chain"
	"github.com/nadfun-trader/internal/config"
	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/position"
	"github.com/nadfun-trader/internal/quote"
	"github.com/nadfun-trader/internal/tokenmeta"
	"github.com/nadfun-trader/internal/types"
)

// ChainBackend is the transaction surface the executor needs.
type ChainBackend interface {
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error)
	BondingBuy(opts *bind.TransactOpts, router common.Address, params chain.BuyParams) (*ethtypes.Transaction, error)
	BondingSell(opts *bind.TransactOpts, router common.Address, params chain.SellParams) (*ethtypes.Transaction, error)
	SwapExactTokensForTokens(opts *bind.TransactOpts, router common.Address, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) (*ethtypes.Transaction, error)
	WrapDeposit(opts *bind.TransactOpts, wrapped common.Address) (*ethtypes.Transaction, error)
	WrapWithdraw(opts *bind.TransactOpts, wrapped common.Address, amount *big.Int) (*ethtypes.Transaction, error)
	WaitMined(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Receipt, error)
	Transactor(key *ecdsa.PrivateKey) (*bind.TransactOpts, error)
}

// Quoter prices prospective trades.
type Quoter interface {
	QuoteBuy(ctx context.Context, token common.Address, amountIn *big.Int) (*types.Quote, error)
	QuoteSell(ctx context.Context, token common.Address, amountIn *big.Int) (*types.Quote, error)
}

// MetaResolver resolves token metadata for entry records.
type MetaResolver interface {
	Resolve(ctx context.Context, token common.Address) tokenmeta.Meta
}

// Executor submits trades for one wallet.
type Executor struct {
	backend ChainBackend
	quoter  Quoter
	meta    MetaResolver
	repo    position.Repository
	routers config.RouterConfig
	trading config.TradingConfig
	key     *ecdsa.PrivateKey
	wallet  common.Address
}

// New creates an executor.
func New(backend ChainBackend, quoter Quoter, meta MetaResolver, repo position.Repository, routers config.RouterConfig, trading config.TradingConfig, key *ecdsa.PrivateKey, wallet common.Address) *Executor {
	return &Executor{
		backend: backend,
		quoter:  quoter,
		meta:    meta,
		repo:    repo,
		routers: routers,
		trading: trading,
		key:     key,
		wallet:  wallet,
	}
}

// Buy spends amountIn native currency on the token. On confirmation the
// native spend is recorded as the position's cost basis; the amount of
// tokens received is deliberately not the basis, since the basis answers
// "what did this position cost me".
func (e *Executor) Buy(ctx context.Context, token common.Address, amountIn *big.Int, slippageBps int64) (*types.TxResult, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"token": token.Hex(),
		"side":  string(types.SideBuy),
	})

	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, apperrors.NewExecutionFailedError("buy", token.Hex(), fmt.Errorf("amount must be positive"))
	}

	q, err := e.quoter.QuoteBuy(ctx, token, amountIn)
	if err != nil {
		return nil, err
	}
	if q.AmountOut == nil || q.AmountOut.Sign() == 0 {
		return nil, apperrors.NewExecutionFailedError("buy", token.Hex(), fmt.Errorf("quote returned zero output"))
	}

	minOut := q.MinAmountOut(slippageBps)
	deadline := types.Deadline(e.trading.DeadlineWindow)

	logger.WithFields(map[string]interface{}{
		"venue":     string(q.Venue),
		"router":    q.Router.Hex(),
		"amountIn":  amountIn.String(),
		"amountOut": q.AmountOut.String(),
		"minOut":    minOut.String(),
	}).Info("Executing buy")

	var result *types.TxResult
	switch q.Venue {
	case types.VenueBondingCurve:
		result, err = e.submit(ctx, "buy", amountIn, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
			return e.backend.BondingBuy(opts, q.Router, chain.BuyParams{
				AmountOutMin: minOut,
				Token:        token,
				To:           e.wallet,
				Deadline:     deadline,
			})
		})
	case types.VenueDex:
		result, err = e.dexBuy(ctx, q, token, amountIn, minOut, deadline)
	default:
		return nil, apperrors.NewUnknownVenueError(q.Router.Hex())
	}
	if err != nil {
		return nil, err
	}

	meta := e.meta.Resolve(ctx, token)
	if recErr := e.repo.RecordEntry(ctx, token, meta.Symbol, quote.WeiToNative(amountIn)); recErr != nil {
		// The trade stands regardless; a missed entry record just means an
		// unknown basis next cycle.
		logger.WithError(recErr).Warn("Entry record failed after confirmed buy")
	}

	logger.WithField("tx", result.Hash.Hex()).Info("Buy confirmed")
	return result, nil
}

// dexBuy executes the post-graduation path: wrap native, grant the router an
// exact allowance, swap wrapped-native for the token.
func (e *Executor) dexBuy(ctx context.Context, q *types.Quote, token common.Address, amountIn, minOut, deadline *big.Int) (*types.TxResult, error) {
	if _, err := e.submit(ctx, "wrap", amountIn, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
		return e.backend.WrapDeposit(opts, e.routers.WrappedNative)
	}); err != nil {
		return nil, err
	}

	if err := e.ensureExactAllowance(ctx, e.routers.WrappedNative, q.Router, amountIn); err != nil {
		return nil, err
	}

	path := []common.Address{e.routers.WrappedNative, token}
	return e.submit(ctx, "swap", nil, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
		return e.backend.SwapExactTokensForTokens(opts, q.Router, amountIn, minOut, path, e.wallet, deadline)
	})
}

// Sell liquidates amountIn tokens, or the full balance when amountIn is nil.
// Both venues accept the same sell tuple; the quoted router decides where it
// lands. A confirmed sell that leaves a zero balance removes the position.
func (e *Executor) Sell(ctx context.Context, token common.Address, amountIn *big.Int, slippageBps int64) (*types.TxResult, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"token": token.Hex(),
		"side":  string(types.SideSell),
	})

	balance, err := e.backend.TokenBalance(ctx, token, e.wallet)
	if err != nil {
		return nil, apperrors.NewProviderError("rpc", err)
	}
	if balance.Sign() == 0 {
		return nil, apperrors.NewExecutionFailedError("sell", token.Hex(), fmt.Errorf("no tokens to sell"))
	}
	if amountIn == nil {
		amountIn = balance
	}
	if amountIn.Sign() <= 0 || amountIn.Cmp(balance) > 0 {
		return nil, apperrors.NewExecutionFailedError("sell", token.Hex(), fmt.Errorf("amount %s exceeds balance %s", amountIn, balance))
	}

	q, err := e.quoter.QuoteSell(ctx, token, amountIn)
	if err != nil {
		return nil, err
	}
	if q.AmountOut == nil || q.AmountOut.Sign() == 0 {
		return nil, apperrors.NewExecutionFailedError("sell", token.Hex(), fmt.Errorf("quote returned zero output"))
	}

	minOut := q.MinAmountOut(slippageBps)
	deadline := types.Deadline(e.trading.DeadlineWindow)

	logger.WithFields(map[string]interface{}{
		"venue":     string(q.Venue),
		"router":    q.Router.Hex(),
		"amountIn":  amountIn.String(),
		"amountOut": q.AmountOut.String(),
		"minOut":    minOut.String(),
	}).Info("Executing sell")

	if err := e.ensureExactAllowance(ctx, token, q.Router, amountIn); err != nil {
		return nil, err
	}

	result, err := e.submit(ctx, "sell", nil, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
		return e.backend.BondingSell(opts, q.Router, chain.SellParams{
			AmountIn:     amountIn,
			AmountOutMin: minOut,
			Token:        token,
			To:           e.wallet,
			Deadline:     deadline,
		})
	})
	if err != nil {
		return nil, err
	}

	if q.Venue == types.VenueDex && e.trading.UnwrapOnSell {
		e.unwrapProceeds(ctx)
	}

	// Verify the sell actually moved tokens out and retire the position
	// once nothing is left.
	after, err := e.backend.TokenBalance(ctx, token, e.wallet)
	if err != nil {
		logger.WithError(err).Warn("Post-sell balance check failed")
		return result, nil
	}
	if after.Cmp(balance) >= 0 {
		return nil, apperrors.NewExecutionFailedError("sell", token.Hex(), fmt.Errorf("balance did not decrease"))
	}
	if after.Sign() == 0 {
		if err := e.repo.Remove(ctx, token); err != nil {
			logger.WithError(err).Warn("Position removal failed after full sell")
		}
	}

	logger.WithField("tx", result.Hash.Hex()).Info("Sell confirmed")
	return result, nil
}

// unwrapProceeds withdraws the wallet's full wrapped-native balance. Sells
// that paid out in wrapped native land here; a failure only leaves funds
// wrapped, so it is logged and swallowed.
func (e *Executor) unwrapProceeds(ctx context.Context) {
	logger := logging.FromContext(ctx)

	wrapped, err := e.backend.TokenBalance(ctx, e.routers.WrappedNative, e.wallet)
	if err != nil || wrapped.Sign() == 0 {
		return
	}
	if _, err := e.submit(ctx, "unwrap", nil, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
		return e.backend.WrapWithdraw(opts, e.routers.WrappedNative, wrapped)
	}); err != nil {
		logger.WithError(err).Warn("Unwrap of sell proceeds failed")
	}
}

// ensureExactAllowance leaves the spender with an allowance of exactly
// amount. A stale nonzero allowance is reset to zero first; some tokens
// reject approve calls that change a nonzero allowance directly.
func (e *Executor) ensureExactAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	current, err := e.backend.Allowance(ctx, token, e.wallet, spender)
	if err != nil {
		return apperrors.NewProviderError("rpc", err)
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	if current.Sign() != 0 {
		if _, err := e.submit(ctx, "approve reset", nil, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
			return e.backend.Approve(opts, token, spender, new(big.Int))
		}); err != nil {
			return err
		}
	}
	_, err = e.submit(ctx, "approve", nil, func(opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
		return e.backend.Approve(opts, token, spender, amount)
	})
	return err
}

// submit signs and sends one transaction and waits for a confirmation
// within the configured timeout. A reverted receipt is an execution error.
func (e *Executor) submit(ctx context.Context, action string, value *big.Int, send func(*bind.TransactOpts) (*ethtypes.Transaction, error)) (*types.TxResult, error) {
	opts, err := e.backend.Transactor(e.key)
	if err != nil {
		return nil, apperrors.NewExecutionFailedError(action, "", err)
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}

	tx, err := send(opts)
	if err != nil {
		return nil, apperrors.NewExecutionFailedError(action, "", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.trading.ConfirmTimeout)
	defer cancel()

	receipt, err := e.backend.WaitMined(waitCtx, tx)
	if err != nil {
		return nil, apperrors.NewExecutionFailedError(action, "", fmt.Errorf("confirmation wait: %w", err))
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, apperrors.NewExecutionFailedError(action, "", fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}

	return &types.TxResult{
		Hash:        tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Success:     true,
		GasUsed:     receipt.GasUsed,
	}, nil
}
