// Package quote resolves trade quotes against the on-chain lens contract and
// determines which venue a token currently trades on.
package quote

import (
	"context"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/config"
	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/types"
)

// ChainReader is the on-chain read surface the quoter needs.
type ChainReader interface {
	GetAmountOut(ctx context.Context, lens, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error)
}

// PriceSource supplies the off-chain fallback spot price in native units
// per whole token.
type PriceSource interface {
	Price(ctx context.Context, token string) (float64, error)
}

// Client prices prospective trades. On-chain quotes are authoritative; the
// market API is only consulted for valuation when the lens call reverts.
type Client struct {
	chain   ChainReader
	prices  PriceSource
	routers config.RouterConfig
}

// New creates a quote client.
func New(chain ChainReader, prices PriceSource, routers config.RouterConfig) *Client {
	return &Client{chain: chain, prices: prices, routers: routers}
}

// QuoteBuy prices a native-for-token buy.
func (c *Client) QuoteBuy(ctx context.Context, token common.Address, amountIn *big.Int) (*types.Quote, error) {
	return c.quote(ctx, types.SideBuy, token, amountIn)
}

// QuoteSell prices a token-for-native sell.
func (c *Client) QuoteSell(ctx context.Context, token common.Address, amountIn *big.Int) (*types.Quote, error) {
	return c.quote(ctx, types.SideSell, token, amountIn)
}

func (c *Client) quote(ctx context.Context, side types.Side, token common.Address, amountIn *big.Int) (*types.Quote, error) {
	router, amountOut, err := c.chain.GetAmountOut(ctx, c.routers.Lens, token, amountIn, side == types.SideBuy)
	if err != nil {
		return nil, apperrors.NewProviderError("lens", err)
	}

	venue, err := c.resolveVenue(router)
	if err != nil {
		return nil, err
	}

	return &types.Quote{
		Token:     token,
		Side:      side,
		Venue:     venue,
		Router:    router,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Source:    types.SourceOnchain,
	}, nil
}

// resolveVenue maps the lens-reported router to a venue. Address comparison
// is byte-wise, so hex casing in configuration never matters. A router that
// matches neither configured venue aborts the trade.
func (c *Client) resolveVenue(router common.Address) (types.Venue, error) {
	switch router {
	case c.routers.BondingCurve:
		return types.VenueBondingCurve, nil
	case c.routers.Dex:
		return types.VenueDex, nil
	default:
		return "", apperrors.NewUnknownVenueError(router.Hex())
	}
}

// SellValue estimates the native-currency value of a token balance for P&L
// purposes. The on-chain sell quote is tried first; if the lens reverts
// (thin liquidity, mid-graduation) the market API spot price is used. When
// both fail the token is unpriceable for this cycle.
func (c *Client) SellValue(ctx context.Context, token common.Address, balance *big.Int, decimals uint8) (float64, types.DataSource, error) {
	logger := logging.FromContext(ctx)

	q, onchainErr := c.QuoteSell(ctx, token, balance)
	if onchainErr == nil {
		return WeiToNative(q.AmountOut), types.SourceOnchain, nil
	}
	// An unknown venue is a hard stop, not a pricing gap.
	if apperrors.IsCategory(onchainErr, apperrors.CategoryVenue) {
		return 0, "", onchainErr
	}

	logger.WithField("token", token.Hex()).WithError(onchainErr).
		Debug("On-chain quote failed, falling back to market API price")

	price, apiErr := c.prices.Price(ctx, token.Hex())
	if apiErr == nil {
		return UnitsToFloat(balance, decimals) * price, types.SourceAPI, nil
	}

	return 0, "", apperrors.NewQuoteUnavailableError(token.Hex(), onchainErr, apiErr)
}

// WeiToNative converts a wei amount to native units as a float. Precision
// loss past float64's 53 bits is acceptable for reporting values.
func WeiToNative(wei *big.Int) float64 {
	return UnitsToFloat(wei, 18)
}

// UnitsToFloat scales a raw token amount down by the given decimals.
func UnitsToFloat(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f / math.Pow10(int(decimals))
}

// NativeToWei converts a native-unit amount into wei.
func NativeToWei(amount float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18))
	wei, _ := scaled.Int(nil)
	return wei
}
