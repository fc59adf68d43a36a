// Package types provides common type definitions for the trading engine.
package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Network represents a supported Monad network.
type Network string

const (
	// NetworkMainnet represents Monad mainnet
	NetworkMainnet Network = "mainnet"
	// NetworkTestnet represents Monad testnet
	NetworkTestnet Network = "testnet"
)

// Venue identifies the execution venue a quote routes to.
type Venue string

const (
	// VenueBondingCurve represents the nad.fun bonding-curve router
	VenueBondingCurve Venue = "bonding_curve"
	// VenueDex represents the constant-product AMM router (post-graduation)
	VenueDex Venue = "dex"
)

// Side identifies the direction of a trade.
type Side string

const (
	// SideBuy spends native currency for tokens
	SideBuy Side = "buy"
	// SideSell spends tokens for native currency
	SideSell Side = "sell"
)

// DataSource records where a position valuation came from.
type DataSource string

const (
	// SourceOnchain means the value came from the on-chain quote contract
	SourceOnchain DataSource = "onchain"
	// SourceAPI means the value came from the off-chain market API fallback
	SourceAPI DataSource = "api"
	// SourceBuyRecord means the value was recorded at buy confirmation time
	SourceBuyRecord DataSource = "buy_record"
)

// Action is the classification the P&L evaluator assigns to a position.
type Action string

const (
	// ActionHold means the position stays open
	ActionHold Action = "hold"
	// ActionSellTakeProfit means P&L reached the take-profit threshold
	ActionSellTakeProfit Action = "sell_take_profit"
	// ActionSellStopLoss means P&L reached the stop-loss threshold
	ActionSellStopLoss Action = "sell_stop_loss"
)

// IsSell reports whether the action requires liquidating the position.
func (a Action) IsSell() bool {
	return a == ActionSellTakeProfit || a == ActionSellStopLoss
}

// Quote is the result of a price lookup for a prospective trade.
// It is transient and never persisted.
type Quote struct {
	Token     common.Address
	Side      Side
	Venue     Venue
	Router    common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Source    DataSource
}

// MinAmountOut applies a slippage tolerance in basis points to the quoted
// output: amountOut * (10000 - slippageBps) / 10000.
func (q *Quote) MinAmountOut(slippageBps int64) *big.Int {
	return ApplySlippage(q.AmountOut, slippageBps)
}

// ApplySlippage computes the minimum acceptable output for a quoted amount
// under a tolerance in basis points. A nil amount yields zero.
func ApplySlippage(amountOut *big.Int, slippageBps int64) *big.Int {
	if amountOut == nil {
		return new(big.Int)
	}
	keep := big.NewInt(10000 - slippageBps)
	out := new(big.Int).Mul(amountOut, keep)
	return out.Div(out, big.NewInt(10000))
}

// TxResult describes the outcome of a submitted transaction.
type TxResult struct {
	Hash        common.Hash
	BlockNumber uint64
	Success     bool
	GasUsed     uint64
}

// Assessment is the per-position output of a P&L evaluation cycle.
type Assessment struct {
	Token        common.Address
	Symbol       string
	Name         string
	Balance      *big.Int // raw token units
	BalanceHuman float64  // balance scaled by token decimals
	CurrentValue float64  // native-currency value of the full balance
	EntryValue   float64  // cost basis in native currency
	EntryKnown   bool     // false when no prior entry record existed
	PnLPercent   float64
	Source       DataSource
	Action       Action
	EvaluatedAt  time.Time
}

// Deadline returns a unix-seconds deadline the given window from now.
func Deadline(window time.Duration) *big.Int {
	return big.NewInt(time.Now().Add(window).Unix())
}
