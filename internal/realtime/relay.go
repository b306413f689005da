package realtime

import (
	"context"
	"encoding/json"
	"time"

	"officine/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type relayMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Rooms []string        `json:"rooms"`
}

// RedisRelay fans events out across instances. Publish writes to a Redis
// channel; Run delivers everything received on that channel to the local
// hub, including this instance's own messages.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
}

func NewRedisRelay(rdb *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel, hub: hub, log: logger.WithComponent("relay")}
}

// Publish implements Publisher. If Redis refuses the message it is delivered
// to the local hub only.
func (r *RedisRelay) Publish(event string, payload any, rooms ...string) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("marshal payload")
		return
	}
	msg, err := json.Marshal(relayMessage{Event: event, Data: data, Rooms: rooms})
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("marshal relay message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, msg).Err(); err != nil {
		r.log.Warn().Err(err).Str("event", event).Msg("relay publish failed, local delivery only")
		r.hub.Publish(event, json.RawMessage(data), rooms...)
	}
}

// Run subscribes to the channel until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg relayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.log.Debug().Err(err).Msg("skip malformed relay message")
				continue
			}
			r.hub.Publish(msg.Event, msg.Data, msg.Rooms...)
		}
	}
}
