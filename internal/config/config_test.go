package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Chain.Network != types.NetworkMainnet {
		t.Errorf("network = %s, want mainnet", cfg.Chain.Network)
	}
	if cfg.Chain.ChainID != 143 {
		t.Errorf("chain id = %d, want 143", cfg.Chain.ChainID)
	}
	if cfg.Trading.TakeProfitPercent != 5 || cfg.Trading.StopLossPercent != -10 {
		t.Errorf("thresholds = %v/%v, want 5/-10", cfg.Trading.TakeProfitPercent, cfg.Trading.StopLossPercent)
	}
	if cfg.Trading.SlippageBps != 100 || cfg.Trading.SellSlippageBps != 300 {
		t.Errorf("slippage = %d/%d, want 100/300", cfg.Trading.SlippageBps, cfg.Trading.SellSlippageBps)
	}
	if cfg.Trading.DeadlineWindow != 300*time.Second {
		t.Errorf("deadline window = %v, want 5m", cfg.Trading.DeadlineWindow)
	}
	if cfg.Trading.UnwrapOnSell {
		t.Error("unwrap on sell must default off")
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("store backend = %s, want file", cfg.Store.Backend)
	}
	if cfg.Cache.Enabled {
		t.Error("cache must default off")
	}
}

func TestLoadConfigTestnetPreset(t *testing.T) {
	t.Setenv("MONAD_NETWORK", "testnet")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Chain.ChainID != 10143 {
		t.Errorf("chain id = %d, want 10143", cfg.Chain.ChainID)
	}
	if cfg.Chain.RPCURL != "https://testnet-rpc.monad.xyz" {
		t.Errorf("rpc url = %s", cfg.Chain.RPCURL)
	}
	if cfg.Routers.BondingCurve != common.HexToAddress("0x865054F0F6A288adaAc30261731361EA7E908003") {
		t.Errorf("bonding router = %s", cfg.Routers.BondingCurve.Hex())
	}
}

func TestLoadConfigUnknownNetwork(t *testing.T) {
	t.Setenv("MONAD_NETWORK", "devnet")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("unknown network must error")
	}
	if !apperrors.IsFatal(err) {
		t.Errorf("config errors are fatal, got %v", err)
	}
}

func TestLoadConfigRouterOverride(t *testing.T) {
	override := "0x1111111111111111111111111111111111111111"
	t.Setenv("NADFUN_DEX_ROUTER", override)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Routers.Dex != common.HexToAddress(override) {
		t.Errorf("dex router = %s, want override", cfg.Routers.Dex.Hex())
	}
	// The other addresses keep their preset values.
	if cfg.Routers.Lens != common.HexToAddress("0x7e78A8DE94f21804F7a17F4E8BF9EC2c872187ea") {
		t.Errorf("lens = %s, want mainnet preset", cfg.Routers.Lens.Hex())
	}
}

func TestLoadConfigMalformedRouter(t *testing.T) {
	t.Setenv("NADFUN_BONDING_ROUTER", "not-an-address")

	if _, err := LoadConfig(); err == nil {
		t.Error("malformed router address must error")
	}
}

func TestLoadConfigSlippageValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"buy slippage too high", "SLIPPAGE_BPS", "10000"},
		{"buy slippage negative", "SLIPPAGE_BPS", "-5"},
		{"sell slippage too high", "SELL_SLIPPAGE_BPS", "12000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("%s=%s must be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestLoadConfigUnknownStoreBackend(t *testing.T) {
	t.Setenv("POSITIONS_BACKEND", "sqlite")

	if _, err := LoadConfig(); err == nil {
		t.Error("unknown store backend must error")
	}
}

func TestSigner(t *testing.T) {
	// Well-known throwaway test vector, never funded.
	const keyHex = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
	wantAddr := common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")

	for _, raw := range []string{keyHex, "0x" + keyHex, "  " + keyHex} {
		cfg := &Config{Wallet: WalletConfig{PrivateKeyHex: raw}}
		key, addr, err := cfg.Signer()
		if err != nil {
			t.Fatalf("Signer(%q): %v", raw, err)
		}
		if key == nil || addr != wantAddr {
			t.Errorf("Signer(%q) address = %s, want %s", raw, addr.Hex(), wantAddr.Hex())
		}
	}
}

func TestSignerErrors(t *testing.T) {
	for _, raw := range []string{"", "0x", "zzzz", "0x1234"} {
		cfg := &Config{Wallet: WalletConfig{PrivateKeyHex: raw}}
		if _, _, err := cfg.Signer(); err == nil {
			t.Errorf("Signer(%q) must error", raw)
		} else if !apperrors.IsFatal(err) {
			t.Errorf("Signer(%q) error must be fatal, got %v", raw, err)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "nope")
	if got := getEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("unparseable int falls back to default, got %d", got)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("duration = %v, want 90s", got)
	}

	t.Setenv("TEST_BOOL", "true")
	if !getEnvAsBool("TEST_BOOL", false) {
		t.Error("bool parse failed")
	}
}

func TestDefaultStorePath(t *testing.T) {
	if !strings.HasSuffix(defaultStorePath(), "positions_report.json") {
		t.Errorf("unexpected default store path %s", defaultStorePath())
	}
}
