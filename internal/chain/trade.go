package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// BondingBuy submits buy(params) on the bonding-curve router.
// The native spend rides in opts.Value.
func (c *Client) BondingBuy(opts *bind.TransactOpts, router common.Address, params BuyParams) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.bondingABI, router, "buy", params)
}

// BondingSell submits sell(params) on the bonding-curve router. The router
// pulls tokens via transferFrom, so the allowance must already be in place.
func (c *Client) BondingSell(opts *bind.TransactOpts, router common.Address, params SellParams) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.bondingABI, router, "sell", params)
}

// SwapExactTokensForTokens submits a swap on the constant-product router.
func (c *Client) SwapExactTokensForTokens(opts *bind.TransactOpts, router common.Address, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.dexABI, router, "swapExactTokensForTokens", amountIn, amountOutMin, path, to, deadline)
}

// WrapDeposit wraps native currency by calling deposit() on the wrapped-native
// contract with opts.Value set.
func (c *Client) WrapDeposit(opts *bind.TransactOpts, wrapped common.Address) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.wmonABI, wrapped, "deposit")
}

// WrapWithdraw unwraps wrapped-native back to the native currency.
func (c *Client) WrapWithdraw(opts *bind.TransactOpts, wrapped common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.wmonABI, wrapped, "withdraw", amount)
}
