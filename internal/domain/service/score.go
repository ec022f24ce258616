package service

import "fmt"

// Risk and confidence weightings below are heuristics, not calibrated
// constants. Treat them as tunable.

const (
	riskBase = 5.0
	riskMin  = 1.0
	riskMax  = 10.0

	confidenceBase = 50.0
	confidenceMin  = 0.0
	confidenceMax  = 100.0

	// Kelly-style damping applied to the recommended size.
	sizingFraction = 0.25

	// Execution estimates: order latency alone for a same-venue round trip,
	// plus a transfer/settlement allowance when funds cross venues.
	sameVenueExecutionS  = 10.0
	crossVenueExecutionS = 610.0
)

// ScoreInput captures everything the scoring heuristics look at.
type ScoreInput struct {
	SpreadPercent   float64
	AvailableVolume float64
	BuyFromCache    bool
	SellFromCache   bool
}

// RiskScore rates an opportunity from 1 (safest) to 10 (most likely to slip
// away). Narrow spreads close fast, thin volume is hard to fill, and cached
// quotes may already be stale.
func RiskScore(in ScoreInput) float64 {
	score := riskBase

	switch {
	case in.SpreadPercent < 0.5:
		score += 2
	case in.SpreadPercent < 1:
		score++
	case in.SpreadPercent > 2:
		score--
	}

	switch {
	case in.AvailableVolume < 1_000:
		score += 2
	case in.AvailableVolume < 10_000:
		score++
	case in.AvailableVolume > 100_000:
		score--
	}

	if in.BuyFromCache {
		score += 0.5
	}
	if in.SellFromCache {
		score += 0.5
	}

	return clamp(score, riskMin, riskMax)
}

// Confidence rates how executable the opportunity looks, 0..100.
func Confidence(in ScoreInput, riskScore float64) float64 {
	c := confidenceBase
	c += in.SpreadPercent * 10
	c += (riskMax - riskScore) * 5

	if in.AvailableVolume > 10_000 {
		c += 10
	}
	if in.AvailableVolume > 100_000 {
		c += 10
	}

	if !in.BuyFromCache {
		c += 5
	}
	if !in.SellFromCache {
		c += 5
	}

	return clamp(c, confidenceMin, confidenceMax)
}

// RecommendedVolume shrinks the tradable size as risk rises: a fraction of
// the available volume scaled by how much risk headroom remains.
func RecommendedVolume(available, riskScore float64) float64 {
	if available <= 0 {
		return 0
	}
	return available * ((riskMax - riskScore) / riskMax) * sizingFraction
}

// EstimateExecutionSeconds returns the expected wall time to complete both
// legs of the trade.
func EstimateExecutionSeconds(buyVenue, sellVenue string) float64 {
	if buyVenue == sellVenue {
		return sameVenueExecutionS
	}
	return crossVenueExecutionS
}

// Warnings lists the caveats a caller should see alongside the opportunity.
func Warnings(in ScoreInput, riskScore float64) []string {
	var warnings []string
	if in.SpreadPercent < 0.5 {
		warnings = append(warnings, "spread below 0.5%, likely to close before execution")
	}
	if riskScore > 7 {
		warnings = append(warnings, fmt.Sprintf("high risk score %.1f", riskScore))
	}
	if in.BuyFromCache || in.SellFromCache {
		warnings = append(warnings, "one or both quotes served from cache, prices may be stale")
	}
	if in.AvailableVolume < 1_000 {
		warnings = append(warnings, "available volume below 1000 units")
	}
	return warnings
}

// ExecutionSteps renders the ordered plan for executing the opportunity.
func ExecutionSteps(symbol, buyVenue, sellVenue string, buyPrice, sellPrice, volume float64) []string {
	steps := []string{
		fmt.Sprintf("buy %.4f %s on %s at %.8g", volume, symbol, buyVenue, buyPrice),
	}
	if buyVenue != sellVenue {
		steps = append(steps, fmt.Sprintf("transfer %.4f %s from %s to %s", volume, symbol, buyVenue, sellVenue))
	}
	steps = append(steps, fmt.Sprintf("sell %.4f %s on %s at %.8g", volume, symbol, sellVenue, sellPrice))
	return steps
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
