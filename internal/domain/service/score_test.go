package service

import "testing"

func TestRiskScoreBounds(t *testing.T) {
	cases := []ScoreInput{
		{},
		{SpreadPercent: 0, AvailableVolume: 0, BuyFromCache: true, SellFromCache: true},
		{SpreadPercent: 0.1, AvailableVolume: 10},
		{SpreadPercent: 50, AvailableVolume: 1e9},
		{SpreadPercent: -1, AvailableVolume: -1},
	}
	for _, in := range cases {
		score := RiskScore(in)
		if score < 1 || score > 10 {
			t.Errorf("risk score out of [1,10] for %+v: %f", in, score)
		}
	}
}

func TestRiskScoreDirection(t *testing.T) {
	thin := RiskScore(ScoreInput{SpreadPercent: 0.2, AvailableVolume: 500})
	deep := RiskScore(ScoreInput{SpreadPercent: 3, AvailableVolume: 500_000})
	if thin <= deep {
		t.Errorf("thin narrow market should score riskier: thin=%f deep=%f", thin, deep)
	}
}

func TestRiskScoreCachedSidesAddHalfPointEach(t *testing.T) {
	base := ScoreInput{SpreadPercent: 1.5, AvailableVolume: 50_000}
	live := RiskScore(base)

	cached := base
	cached.BuyFromCache = true
	cached.SellFromCache = true
	if got := RiskScore(cached); got != live+1 {
		t.Errorf("two cached sides should add 1.0: live=%f cached=%f", live, got)
	}
}

func TestConfidenceBounds(t *testing.T) {
	cases := []ScoreInput{
		{},
		{SpreadPercent: 100, AvailableVolume: 1e9},
		{SpreadPercent: 0, AvailableVolume: 0, BuyFromCache: true, SellFromCache: true},
	}
	for _, in := range cases {
		c := Confidence(in, RiskScore(in))
		if c < 0 || c > 100 {
			t.Errorf("confidence out of [0,100] for %+v: %f", in, c)
		}
	}
}

func TestRecommendedVolumeShrinksWithRisk(t *testing.T) {
	safe := RecommendedVolume(10_000, 1)
	risky := RecommendedVolume(10_000, 9)
	if safe <= risky {
		t.Errorf("recommended volume should shrink as risk rises: safe=%f risky=%f", safe, risky)
	}
	if v := RecommendedVolume(10_000, 10); v != 0 {
		t.Errorf("max risk should recommend 0, got %f", v)
	}
	if v := RecommendedVolume(0, 5); v != 0 {
		t.Errorf("no volume should recommend 0, got %f", v)
	}
	// Never more than the damping fraction of what's available.
	if v := RecommendedVolume(10_000, 1); v > 10_000*0.25 {
		t.Errorf("recommended volume above damping cap: %f", v)
	}
}

func TestEstimateExecutionSeconds(t *testing.T) {
	if got := EstimateExecutionSeconds("binance", "binance"); got != 10 {
		t.Errorf("same venue: expected 10s, got %f", got)
	}
	if got := EstimateExecutionSeconds("binance", "bybit"); got != 610 {
		t.Errorf("cross venue: expected 610s, got %f", got)
	}
}

func TestWarnings(t *testing.T) {
	in := ScoreInput{SpreadPercent: 0.2, AvailableVolume: 500, BuyFromCache: true}
	warnings := Warnings(in, RiskScore(in))
	if len(warnings) < 3 {
		t.Errorf("expected warnings for narrow spread, cached quote and thin volume, got %v", warnings)
	}

	clean := ScoreInput{SpreadPercent: 1.5, AvailableVolume: 50_000}
	if w := Warnings(clean, RiskScore(clean)); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
}

func TestExecutionStepsCrossVenueHasTransfer(t *testing.T) {
	steps := ExecutionSteps("BTC/USDT", "binance", "bybit", 100, 103, 5)
	if len(steps) != 3 {
		t.Fatalf("expected buy/transfer/sell, got %v", steps)
	}
	same := ExecutionSteps("BTC/USDT", "binance", "binance", 100, 103, 5)
	if len(same) != 2 {
		t.Fatalf("same venue should skip transfer, got %v", same)
	}
}
