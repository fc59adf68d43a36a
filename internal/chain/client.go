// Package chain wraps the Monad RPC connection: contract reads, transaction
// submission and confirmation waits for the trading engine.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	apperrors "github.com/nadfun-trader/internal/errors"
)

const callTimeout = 10 * time.Second

// Client wraps an ethclient connection with the parsed venue ABIs.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int

	erc20ABI   abi.ABI
	lensABI    abi.ABI
	bondingABI abi.ABI
	dexABI     abi.ABI
	wmonABI    abi.ABI
}

// Dial connects to the RPC endpoint and verifies the chain id matches.
func Dial(ctx context.Context, rpcURL string, chainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperrors.NewProviderError("rpc", fmt.Errorf("dial %s: %w", rpcURL, err))
	}

	remoteID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, apperrors.NewProviderError("rpc", fmt.Errorf("fetch chain id: %w", err))
	}
	if chainID != 0 && remoteID.Int64() != chainID {
		eth.Close()
		return nil, apperrors.NewConfigError("MONAD_CHAIN_ID",
			fmt.Sprintf("endpoint reports chain %d, configured %d", remoteID.Int64(), chainID))
	}

	c := &Client{eth: eth, chainID: remoteID}
	for _, entry := range []struct {
		raw    string
		target *abi.ABI
	}{
		{erc20ABIJSON, &c.erc20ABI},
		{lensABIJSON, &c.lensABI},
		{bondingRouterABIJSON, &c.bondingABI},
		{dexRouterABIJSON, &c.dexABI},
		{wrappedNativeABIJSON, &c.wmonABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(entry.raw))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("abi parse: %w", err)
		}
		*entry.target = parsed
	}

	return c, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// ChainID returns the connected chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// NativeBalance returns the wallet's native-currency balance in wei.
func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.eth.BalanceAt(ctx, owner, nil)
}

// call packs a read-only contract call and returns the raw result.
func (c *Client) call(ctx context.Context, contractABI abi.ABI, contract common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	return c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
}

// GetAmountOut calls the lens quote contract:
// getAmountOut(token, amountIn, isBuy) -> (router, amountOut).
// Reverts are common for illiquid or just-graduated tokens and surface
// as an error for the caller's fallback path.
func (c *Client) GetAmountOut(ctx context.Context, lens, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error) {
	result, err := c.call(ctx, c.lensABI, lens, "getAmountOut", token, amountIn, isBuy)
	if err != nil {
		return common.Address{}, nil, err
	}

	out, err := c.lensABI.Unpack("getAmountOut", result)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("unpack getAmountOut: %w", err)
	}
	if len(out) != 2 {
		return common.Address{}, nil, fmt.Errorf("getAmountOut returned %d values, want 2", len(out))
	}

	router, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("getAmountOut router has unexpected type %T", out[0])
	}
	amountOut, ok := out[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("getAmountOut amount has unexpected type %T", out[1])
	}
	return router, amountOut, nil
}

// Transactor builds keyed transact opts for the signer.
func (c *Client) Transactor(key *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	return opts, nil
}

// transact submits a state-changing call through a bound contract.
func (c *Client) transact(opts *bind.TransactOpts, contractABI abi.ABI, contract common.Address, method string, args ...interface{}) (*ethtypes.Transaction, error) {
	bound := bind.NewBoundContract(contract, contractABI, c.eth, c.eth, c.eth)
	return bound.Transact(opts, method, args...)
}

// WaitMined blocks until one confirmation is observed or ctx expires.
// Once a transaction is submitted the engine commits to waiting for its
// outcome; abandoning it would risk nonce desync.
func (c *Client) WaitMined(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	return bind.WaitMined(ctx, c.eth, tx)
}
