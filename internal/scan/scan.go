// Package scan discovers and ranks bonding-curve tokens worth buying. It
// merges the frontend new-event feed with the creation-time listing, scores
// each candidate on liquidity, momentum, volume and holder count, and picks
// the top performers.
package scan

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/marketapi"
)

// MarketSource is the API surface the scanner needs.
type MarketSource interface {
	NewEventTokens(ctx context.Context) ([]marketapi.TokenInfo, error)
	RecentTokens(ctx context.Context) ([]marketapi.TokenInfo, error)
	Market(ctx context.Context, token string) (*marketapi.MarketData, error)
}

// Candidate is a scored bonding-curve token.
type Candidate struct {
	Address   string
	Symbol    string
	Liquidity float64 // native units in the curve reserve
	Holders   int
	Volume    float64
	Percent   float64 // recent price change percent
	Score     int
}

// Scanner ranks bonding-curve tokens.
type Scanner struct {
	source MarketSource
	// pause between per-token market lookups, the API throttles bursts
	lookupPacing time.Duration
}

// New creates a scanner.
func New(source MarketSource) *Scanner {
	return &Scanner{source: source, lookupPacing: 400 * time.Millisecond}
}

// BondingTokens merges both discovery feeds, keeping only tokens still on
// the bonding curve. Either feed failing alone is tolerated; candidates
// from the other still flow through.
func (s *Scanner) BondingTokens(ctx context.Context) ([]marketapi.TokenInfo, error) {
	logger := logging.FromContext(ctx)
	merged := make(map[string]marketapi.TokenInfo)

	fromEvents, err := s.source.NewEventTokens(ctx)
	if err != nil {
		logger.WithError(err).Warn("New-event feed unavailable")
	}
	for _, info := range fromEvents {
		merged[strings.ToLower(info.TokenID)] = info
	}

	fromListing, err := s.source.RecentTokens(ctx)
	if err != nil {
		logger.WithError(err).Warn("Creation-time listing unavailable")
	}
	for _, info := range fromListing {
		merged[strings.ToLower(info.TokenID)] = info
	}

	tokens := make([]marketapi.TokenInfo, 0, len(merged))
	for _, info := range merged {
		tokens = append(tokens, info)
	}
	logger.WithField("count", len(tokens)).Info("Bonding-curve tokens discovered")
	return tokens, nil
}

// Score fetches market data for each token and scores it. Tokens that
// graduated since discovery, or fall under the liquidity and holder
// floors, are dropped.
func (s *Scanner) Score(ctx context.Context, tokens []marketapi.TokenInfo) ([]Candidate, error) {
	logger := logging.FromContext(ctx)
	var candidates []Candidate

	for _, info := range tokens {
		select {
		case <-ctx.Done():
			return candidates, ctx.Err()
		default:
		}

		market, err := s.source.Market(ctx, info.TokenID)
		if err != nil {
			logger.WithField("token", info.TokenID).WithError(err).Debug("Market lookup failed, skipping")
			continue
		}
		if market.TokenInfo != nil && market.TokenInfo.IsGraduated {
			continue
		}
		if market.MarketInfo == nil {
			continue
		}

		liquidity := parseWeiString(market.MarketInfo.ReserveNative)
		volume := parseWeiString(market.MarketInfo.Volume)
		holders := market.MarketInfo.HolderCount
		percent, _ := strconv.ParseFloat(market.Percent, 64)

		// Relaxed floors for early-stage curves.
		if liquidity < 1 || holders < 1 {
			continue
		}

		candidates = append(candidates, Candidate{
			Address:   info.TokenID,
			Symbol:    info.Symbol,
			Liquidity: liquidity,
			Holders:   holders,
			Volume:    volume,
			Percent:   percent,
			Score:     score(liquidity, percent, volume, holders),
		})

		if s.lookupPacing > 0 {
			select {
			case <-time.After(s.lookupPacing):
			case <-ctx.Done():
				return candidates, ctx.Err()
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// Select returns the top candidates at or above minScore, capped at limit.
func Select(candidates []Candidate, minScore, limit int) []Candidate {
	var picked []Candidate
	for _, c := range candidates {
		if c.Score < minScore {
			continue
		}
		picked = append(picked, c)
		if len(picked) == limit {
			break
		}
	}
	return picked
}

// score weights liquidity 35%, volume 25%, momentum 20%, holders 10%, plus
// a flat 10% base so brand-new curves are not scored to zero.
func score(liquidity, percent, volume float64, holders int) int {
	liquidityScore := tier(liquidity, []tierStep{
		{100000, 100}, {50000, 80}, {10000, 60}, {1000, 40}, {100, 20},
	})
	momentumScore := tier(percent, []tierStep{
		{50, 100}, {20, 80}, {10, 60}, {5, 40}, {0, 20},
	})
	volumeScore := tier(volume, []tierStep{
		{100000, 100}, {50000, 80}, {10000, 60}, {1000, 40}, {100, 20},
	})
	holderScore := tier(float64(holders), []tierStep{
		{100, 100}, {50, 80}, {10, 60}, {5, 40}, {1, 20},
	})

	total := liquidityScore*0.35 + momentumScore*0.20 + volumeScore*0.25 + holderScore*0.10 + 10*0.10
	return int(total + 0.5)
}

type tierStep struct {
	threshold float64
	score     float64
}

func tier(value float64, steps []tierStep) float64 {
	for _, step := range steps {
		if value >= step.threshold {
			return step.score
		}
	}
	return 0
}

// parseWeiString converts a decimal wei string to native units.
func parseWeiString(raw string) float64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value / 1e18
}
