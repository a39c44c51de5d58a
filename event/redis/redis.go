// Package redis publishes cache events to a Redis pub/sub channel as JSON.
package redis

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/aicache/event"
)

var ErrNilClient = errors.New("redis publisher: nil client")

type Publisher struct {
	rdb         goredis.UniversalClient
	channel     string
	closeClient bool
}

var _ event.Publisher = (*Publisher)(nil)

type Config struct {
	Client goredis.UniversalClient

	// Channel is the pub/sub channel name. "" => "aicache:events".
	Channel string

	// CloseClient: set true only if this publisher exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Publisher, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "aicache:events"
	}
	return &Publisher{rdb: cfg.Client, channel: channel, closeClient: cfg.CloseClient}, nil
}

func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *Publisher) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
