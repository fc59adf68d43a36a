package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TokenBalance returns the ERC-20 balance of owner.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	result, err := c.call(ctx, c.erc20ABI, token, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}
	out, err := c.erc20ABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned unexpected type %T", out[0])
	}
	return balance, nil
}

// Allowance returns the ERC-20 allowance granted by owner to spender.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	result, err := c.call(ctx, c.erc20ABI, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}
	out, err := c.erc20ABI.Unpack("allowance", result)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance returned unexpected type %T", out[0])
	}
	return allowance, nil
}

// TokenSymbol reads the ERC-20 symbol. Non-conforming tokens error out;
// callers fall back to a placeholder.
func (c *Client) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	return c.stringRead(ctx, token, "symbol")
}

// TokenName reads the ERC-20 name.
func (c *Client) TokenName(ctx context.Context, token common.Address) (string, error) {
	return c.stringRead(ctx, token, "name")
}

// TokenDecimals reads the ERC-20 decimals.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	result, err := c.call(ctx, c.erc20ABI, token, "decimals")
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}
	out, err := c.erc20ABI.Unpack("decimals", result)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned unexpected type %T", out[0])
	}
	return decimals, nil
}

func (c *Client) stringRead(ctx context.Context, token common.Address, method string) (string, error) {
	result, err := c.call(ctx, c.erc20ABI, token, method)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, token.Hex(), err)
	}
	out, err := c.erc20ABI.Unpack(method, result)
	if err != nil {
		return "", fmt.Errorf("unpack %s: %w", method, err)
	}
	value, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return value, nil
}

// Approve submits an ERC-20 approve(spender, amount) transaction.
func (c *Client) Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	return c.transact(opts, c.erc20ABI, token, "approve", spender, amount)
}
