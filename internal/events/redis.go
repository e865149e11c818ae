package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisRelay shares events between server instances. Publish writes to a
// Redis channel and Run delivers everything received on it to the local hub,
// including events this instance published.
type RedisRelay struct {
	rdb     redis.UniversalClient
	channel string
	hub     *Hub
	log     *slog.Logger
}

func NewRedisRelay(rdb redis.UniversalClient, channel string, hub *Hub, log *slog.Logger) *RedisRelay {
	if log == nil {
		log = slog.Default()
	}
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		log:     log.With(slog.String("component", "events.redis"), slog.String("channel", channel)),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

// Run blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) deliver(payload []byte) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		r.log.Warn("discarding malformed event", slog.Any("err", err))
		return
	}
	r.hub.Broadcast(payload, e.Origin)
}
