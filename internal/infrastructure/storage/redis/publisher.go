package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

// Publisher pushes detected opportunities into a redis stream for durable
// consumers and onto a pub/sub channel for live listeners.
type Publisher struct {
	rdb     *redis.Client
	stream  string
	channel string
}

func New(rdb *redis.Client, prefix, stream, channel string) *Publisher {
	if strings.TrimSpace(stream) == "" {
		stream = prefix + ":opportunities"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":opportunities:pub"
	}
	return &Publisher{rdb: rdb, stream: stream, channel: channel}
}

func (p *Publisher) PublishOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return err
	}

	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10_000,
		Approx: true,
		Values: map[string]any{
			"id":         opp.ID,
			"symbol":     opp.Symbol,
			"buy_venue":  opp.BuyVenue,
			"sell_venue": opp.SellVenue,
			"net_profit": opp.NetProfit,
			"payload":    string(payload),
		},
	}).Err(); err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

var _ port.SignalPublisher = (*Publisher)(nil)
