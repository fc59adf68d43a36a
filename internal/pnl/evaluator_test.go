package pnl

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/marketapi"
	"github.com/nadfun-trader/internal/position"
	"github.com/nadfun-trader/internal/tokenmeta"
	"github.com/nadfun-trader/internal/types"
)

func TestPnLPercent(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		entry   float64
		want    float64
	}{
		{"five percent gain", 105, 100, 5.0},
		{"ten percent loss", 90, 100, -10.0},
		{"flat", 100, 100, 0},
		{"zero entry", 50, 0, 0},
		{"negative entry", 50, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PnLPercent(tt.current, tt.entry)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PnLPercent(%v, %v) = %v, want %v", tt.current, tt.entry, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		pnl  float64
		want types.Action
	}{
		{"at take profit", 5.0, types.ActionSellTakeProfit},
		{"above take profit", 12.3, types.ActionSellTakeProfit},
		{"just under take profit", 4.99, types.ActionHold},
		{"at stop loss", -10.0, types.ActionSellStopLoss},
		{"below stop loss", -55.0, types.ActionSellStopLoss},
		{"just above stop loss", -9.99, types.ActionHold},
		{"flat", 0, types.ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.pnl, 5, -10); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.pnl, got, tt.want)
			}
		})
	}
}

// fakes

type fakeHoldings struct {
	holdings []marketapi.Holding
	err      error
}

func (f *fakeHoldings) Holdings(ctx context.Context, wallet string) ([]marketapi.Holding, error) {
	return f.holdings, f.err
}

type fakeBalances struct {
	balances map[common.Address]*big.Int
}

func (f *fakeBalances) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if b, ok := f.balances[token]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

type fakeValuer struct {
	values map[common.Address]float64
	errs   map[common.Address]error
}

func (f *fakeValuer) SellValue(ctx context.Context, token common.Address, balance *big.Int, decimals uint8) (float64, types.DataSource, error) {
	if err, ok := f.errs[token]; ok {
		return 0, "", err
	}
	return f.values[token], types.SourceOnchain, nil
}

type fakeMeta struct {
	decimals uint8
}

func (f *fakeMeta) Resolve(ctx context.Context, token common.Address) tokenmeta.Meta {
	decimals := f.decimals
	if decimals == 0 {
		decimals = 18
	}
	return tokenmeta.Meta{Symbol: "UNKNOWN", Decimals: decimals}
}

func holding(token common.Address, symbol string) marketapi.Holding {
	return marketapi.Holding{TokenInfo: &marketapi.TokenInfo{
		TokenID: token.Hex(),
		Symbol:  symbol,
	}}
}

func wei(native float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(native), big.NewFloat(1e18))
	out, _ := scaled.Int(nil)
	return out
}

func newTestEvaluator(t *testing.T, holdings *fakeHoldings, balances *fakeBalances, valuer *fakeValuer) (*Evaluator, position.Repository) {
	t.Helper()
	repo := position.NewFileRepository(filepath.Join(t.TempDir(), "positions_report.json"))
	return New(holdings, balances, valuer, &fakeMeta{}, repo, 5, -10), repo
}

func TestEvaluateTakeProfit(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")

	ev, repo := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{holding(token, "MEME")}},
		&fakeBalances{balances: map[common.Address]*big.Int{token: wei(1000)}},
		&fakeValuer{values: map[common.Address]float64{token: 0.1575}},
	)

	// Entry booked at buy time: 0.15 MON spent.
	if err := repo.RecordEntry(ctx, token, "MEME", 0.15); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(assessments) != 1 {
		t.Fatalf("got %d assessments, want 1", len(assessments))
	}

	a := assessments[0]
	if !a.EntryKnown {
		t.Error("entry must be known after RecordEntry")
	}
	if math.Abs(a.PnLPercent-5.0) > 1e-9 {
		t.Errorf("pnl = %v, want 5.0", a.PnLPercent)
	}
	if a.Action != types.ActionSellTakeProfit {
		t.Errorf("action = %s, want %s", a.Action, types.ActionSellTakeProfit)
	}
}

func TestEvaluateFreshBuyIsFlat(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")

	ev, repo := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{holding(token, "MEME")}},
		&fakeBalances{balances: map[common.Address]*big.Int{token: wei(1000)}},
		&fakeValuer{values: map[common.Address]float64{token: 0.15}},
	)
	if err := repo.RecordEntry(ctx, token, "MEME", 0.15); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	a := assessments[0]
	if a.PnLPercent != 0 || a.Action != types.ActionHold {
		t.Errorf("fresh buy: pnl=%v action=%s, want 0 / hold", a.PnLPercent, a.Action)
	}
}

func TestEvaluateUnknownBasisNeverSells(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")

	// No entry record at all; even a huge valuation must hold.
	ev, _ := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{holding(token, "MEME")}},
		&fakeBalances{balances: map[common.Address]*big.Int{token: wei(1000)}},
		&fakeValuer{values: map[common.Address]float64{token: 99.0}},
	)

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	a := assessments[0]
	if a.EntryKnown {
		t.Error("entry must be unknown without a record")
	}
	if a.PnLPercent != 0 {
		t.Errorf("unknown basis pnl = %v, want 0", a.PnLPercent)
	}
	if a.Action != types.ActionHold {
		t.Errorf("unknown basis action = %s, want hold", a.Action)
	}
	if a.EntryValue != a.CurrentValue {
		t.Errorf("display entry should mirror current value, got %v vs %v", a.EntryValue, a.CurrentValue)
	}
}

func TestEvaluateSkipsZeroBalances(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")

	// API still reports the holding but the chain says zero.
	ev, _ := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{holding(token, "MEME")}},
		&fakeBalances{balances: map[common.Address]*big.Int{}},
		&fakeValuer{},
	)

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(assessments) != 0 {
		t.Errorf("got %d assessments, want 0", len(assessments))
	}
}

func TestEvaluateSkipsUnpriceable(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	priced := common.HexToAddress("0x2000000000000000000000000000000000000002")
	unpriced := common.HexToAddress("0x3000000000000000000000000000000000000003")

	ev, _ := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{
			holding(unpriced, "DEAD"),
			holding(priced, "MEME"),
		}},
		&fakeBalances{balances: map[common.Address]*big.Int{
			priced:   wei(1000),
			unpriced: wei(500),
		}},
		&fakeValuer{
			values: map[common.Address]float64{priced: 1.0},
			errs: map[common.Address]error{
				unpriced: apperrorsQuoteUnavailable(unpriced),
			},
		},
	)

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(assessments) != 1 || assessments[0].Token != priced {
		t.Fatalf("unpriceable token must be skipped, got %d assessments", len(assessments))
	}
}

func TestEvaluateSkipsMalformedHoldings(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")

	ev, _ := newTestEvaluator(t,
		&fakeHoldings{holdings: []marketapi.Holding{
			{TokenInfo: nil},
			{TokenInfo: &marketapi.TokenInfo{TokenID: "not-an-address"}},
		}},
		&fakeBalances{},
		&fakeValuer{},
	)

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(assessments) != 0 {
		t.Errorf("malformed holdings must be skipped, got %d", len(assessments))
	}
}

func TestEvaluateUsesResolvedDecimals(t *testing.T) {
	ctx := context.Background()
	wallet := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")

	// A six-decimal token; the API reports the symbol but never decimals.
	repo := position.NewFileRepository(filepath.Join(t.TempDir(), "positions_report.json"))
	ev := New(
		&fakeHoldings{holdings: []marketapi.Holding{holding(token, "MEME")}},
		&fakeBalances{balances: map[common.Address]*big.Int{token: big.NewInt(1_500_000)}},
		&fakeValuer{values: map[common.Address]float64{token: 0.2}},
		&fakeMeta{decimals: 6},
		repo, 5, -10,
	)

	assessments, err := ev.Evaluate(ctx, wallet)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(assessments) != 1 {
		t.Fatalf("got %d assessments, want 1", len(assessments))
	}
	a := assessments[0]
	if math.Abs(a.BalanceHuman-1.5) > 1e-9 {
		t.Errorf("balance = %v, want 1.5", a.BalanceHuman)
	}
	if a.Symbol != "MEME" {
		t.Errorf("symbol = %s, want the API-reported symbol", a.Symbol)
	}
}

func TestToPositions(t *testing.T) {
	token := common.HexToAddress("0x2000000000000000000000000000000000000002")
	assessments := []types.Assessment{{
		Token:        token,
		Symbol:       "MEME",
		BalanceHuman: 1000,
		CurrentValue: 0.1575,
		EntryValue:   0.15,
		EntryKnown:   true,
		PnLPercent:   5,
		Source:       types.SourceOnchain,
	}}

	positions := ToPositions(assessments)
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	p := positions[0]
	if p.Address != token.Hex() || p.EntryValue != 0.15 || !p.EntryKnown {
		t.Errorf("unexpected position: %+v", p)
	}
}

func apperrorsQuoteUnavailable(token common.Address) error {
	return apperrors.NewQuoteUnavailableError(token.Hex(),
		fmt.Errorf("execution reverted"), fmt.Errorf("no price"))
}
