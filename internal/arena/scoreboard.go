package arena

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Standing is one row of a room's scoreboard.
type Standing struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Score         int    `json:"score"`
}

// Scoreboard keeps per-room standings in Redis so finished-match results
// survive the session actor. Scores are absolute (ZADD, not ZINCRBY):
// the session already holds the running total.
type Scoreboard struct {
	redis  *redis.Client
	logger zerolog.Logger
	prefix string
	ttl    time.Duration
}

// NewScoreboard creates a Redis-backed scoreboard. Room keys expire a week
// after the last write.
func NewScoreboard(rdb *redis.Client, logger zerolog.Logger) *Scoreboard {
	return &Scoreboard{
		redis:  rdb,
		logger: logger.With().Str("component", "scoreboard").Logger(),
		prefix: "arena:scores",
		ttl:    7 * 24 * time.Hour,
	}
}

// Record implements ScoreSink. Best-effort: a Redis failure is logged and
// dropped, never surfaced into the game loop.
func (s *Scoreboard) Record(roomCode, participantID, displayName string, score int) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	zKey := s.roomKey(roomCode)
	metaKey := s.metaKey(roomCode, participantID)

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, zKey, redis.Z{Score: float64(score), Member: participantID})
	pipe.HSet(ctx, metaKey, "display_name", displayName)
	pipe.Expire(ctx, zKey, s.ttl)
	pipe.Expire(ctx, metaKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to record score")
	}
}

// Standings returns the room's top entries, highest score first.
func (s *Scoreboard) Standings(ctx context.Context, roomCode string, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := s.redis.ZRevRangeWithScores(ctx, s.roomKey(roomCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch standings: %w", err)
	}

	standings := make([]Standing, 0, len(results))
	for _, z := range results {
		id := z.Member.(string)
		name, err := s.redis.HGet(ctx, s.metaKey(roomCode, id), "display_name").Result()
		if err != nil && err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read scoreboard metadata")
		}
		standings = append(standings, Standing{
			ParticipantID: id,
			DisplayName:   name,
			Score:         int(z.Score),
		})
	}
	return standings, nil
}

// Clear implements the ScoreSink teardown: when a room closes its
// standings go with it. Best-effort, like Record.
func (s *Scoreboard) Clear(roomCode string) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ids, err := s.redis.ZRange(ctx, s.roomKey(roomCode), 0, -1).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to clear standings")
		return
	}
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.roomKey(roomCode))
	for _, id := range ids {
		pipe.Del(ctx, s.metaKey(roomCode, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to clear standings")
	}
}

func (s *Scoreboard) roomKey(roomCode string) string {
	return fmt.Sprintf("%s:%s", s.prefix, roomCode)
}

func (s *Scoreboard) metaKey(roomCode, participantID string) string {
	return fmt.Sprintf("%s:%s:meta:%s", s.prefix, roomCode, participantID)
}
