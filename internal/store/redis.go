package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kiliankoe/pokerplanning/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	sessionKeyPrefix = "poker:session:"
	chatKeyPrefix    = "poker:chat:"
)

// Redis keeps each session document as a JSON string and the chat log as a
// sorted set scored by timestamp. A positive ttl expires idle games.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{rdb: rdb, ttl: opts.TTL}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKeyPrefix+code).Result()
	if err != nil {
		return false, fmt.Errorf("exists session: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Load(ctx context.Context, code string) (*game.Session, error) {
	doc, err := r.rdb.Get(ctx, sessionKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(doc)
}

func (r *Redis) Save(ctx context.Context, s *game.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.ID, doc, r.ttl)
	if r.ttl > 0 {
		pipe.Expire(ctx, chatKeyPrefix+s.ID, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *Redis) AppendMessage(ctx context.Context, code string, m game.Message) error {
	member, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.ZAdd(ctx, chatKeyPrefix+code, redis.Z{Score: float64(m.TS), Member: member})
	if r.ttl > 0 {
		pipe.Expire(ctx, chatKeyPrefix+code, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add chat message: %w", err)
	}
	return nil
}

func (r *Redis) Messages(ctx context.Context, code string, limit int) ([]game.Message, error) {
	if limit <= 0 {
		limit = game.DefaultChatLimit
	}
	members, err := r.rdb.ZRange(ctx, chatKeyPrefix+code, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("range chat messages: %w", err)
	}
	out := make([]game.Message, 0, len(members))
	for _, raw := range members {
		var m game.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("skipping undecodable chat message")
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
