// Package console renders opportunities for a human watching the process,
// used as the publisher when no redis sink is configured.
package console

import (
	"context"
	"fmt"
	"time"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

type Sink struct{}

func NewSink() port.SignalPublisher { return &Sink{} }

func (s *Sink) PublishOpportunity(_ context.Context, opp *model.ArbitrageOpportunity) error {
	ts := time.UnixMilli(opp.Timestamp).Format("2006-01-02 15:04:05")
	fmt.Printf("%s %-10s buy %s @ %.8g -> sell %s @ %.8g  spread %.3f%%  net %.4f  risk %.1f  conf %.0f\n",
		ts, opp.Symbol,
		opp.BuyVenue, opp.BuyPrice,
		opp.SellVenue, opp.SellPrice,
		opp.SpreadPercent, opp.NetProfit,
		opp.RiskScore, opp.Confidence)
	return nil
}
