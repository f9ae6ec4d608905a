package arena

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

const relayChannelPrefix = "arena:room:"

// Relay fans session snapshots out through Redis Pub/Sub so every API
// instance delivers them to its locally-connected clients. Sessions
// publish through it (Publisher); Run consumes the other direction.
type Relay struct {
	redis  *redis.Client
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewRelay creates a room relay over the shared Redis client.
func NewRelay(rdb *redis.Client, hub *ws.Hub, logger zerolog.Logger) *Relay {
	return &Relay{
		redis:  rdb,
		hub:    hub,
		logger: logger.With().Str("component", "room_relay").Logger(),
	}
}

// Publish implements Publisher. Without Redis it degrades to a direct
// local broadcast, which is correct for a single-instance deployment.
func (r *Relay) Publish(roomCode string, msg ws.Message) {
	if r.redis == nil {
		r.deliver(roomCode, msg)
		return
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to encode room message")
		return
	}
	if err := r.redis.Publish(context.Background(), relayChannelPrefix+roomCode, raw).Err(); err != nil {
		r.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to publish room message, delivering locally")
		r.deliver(roomCode, msg)
	}
}

// Run subscribes to every room channel and blocks until the context is
// cancelled. No-op without Redis; Publish already delivered locally.
func (r *Relay) Run(ctx context.Context) error {
	if r.redis == nil || r.hub == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	sub := r.redis.PSubscribe(ctx, relayChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Channel, msg.Payload)
		}
	}
}

func (r *Relay) forward(channel, payload string) {
	roomCode := strings.TrimPrefix(channel, relayChannelPrefix)
	var msg ws.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to decode room message")
		return
	}
	r.deliver(roomCode, msg)
}

func (r *Relay) deliver(roomCode string, msg ws.Message) {
	if r.hub == nil {
		return
	}
	r.hub.BroadcastToRoom(roomCode, msg)
}
