package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Contract ABIs for the nad.fun venues. Only the entry points the engine
// calls are declared.

const erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

const lensABIJSON = `[
  {"inputs":[
    {"name":"token","type":"address"},
    {"name":"amountIn","type":"uint256"},
    {"name":"isBuy","type":"bool"}
  ],"name":"getAmountOut","outputs":[
    {"name":"router","type":"address"},
    {"name":"amountOut","type":"uint256"}
  ],"stateMutability":"view","type":"function"}
]`

const bondingRouterABIJSON = `[
  {"inputs":[{"components":[
    {"name":"amountOutMin","type":"uint256"},
    {"name":"token","type":"address"},
    {"name":"to","type":"address"},
    {"name":"deadline","type":"uint256"}
  ],"name":"params","type":"tuple"}],"name":"buy","outputs":[{"name":"","type":"uint256"}],"stateMutability":"payable","type":"function"},
  {"inputs":[{"components":[
    {"name":"amountIn","type":"uint256"},
    {"name":"amountOutMin","type":"uint256"},
    {"name":"token","type":"address"},
    {"name":"to","type":"address"},
    {"name":"deadline","type":"uint256"}
  ],"name":"params","type":"tuple"}],"name":"sell","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

const dexRouterABIJSON = `[
  {"inputs":[
    {"name":"amountIn","type":"uint256"},
    {"name":"amountOutMin","type":"uint256"},
    {"name":"path","type":"address[]"},
    {"name":"to","type":"address"},
    {"name":"deadline","type":"uint256"}
  ],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

const wrappedNativeABIJSON = `[
  {"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// BuyParams mirrors the bonding-curve router buy tuple.
type BuyParams struct {
	AmountOutMin *big.Int
	Token        common.Address
	To           common.Address
	Deadline     *big.Int
}

// SellParams mirrors the bonding-curve router sell tuple.
type SellParams struct {
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Token        common.Address
	To           common.Address
	Deadline     *big.Int
}
