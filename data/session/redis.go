// Package session keeps per-user conversational state in redis: the Telegram
// bot's dialog state and the agent chat threads for both transports.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/utils"
)

const (
	botKeyPrefix  = "botSession:"
	chatKeyPrefix = "chatSession:"
)

type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (r *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, botKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.Session{}, err
	}

	sess := model.Session{}
	if err := json.Unmarshal([]byte(res), &sess); err != nil {
		slog.Error("can't unmarshal session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.Session{}, errors.New("can't unmarshal session")
	}

	return sess, nil
}

func (r *RedisSession) SetSession(ctx context.Context, key string, sess model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	sessJson, err := json.Marshal(sess)
	if err != nil {
		slog.Error("can't marshal session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return errors.New("can't marshal session")
	}

	_, err = r.redis.Set(ctx, botKeyPrefix+key, sessJson, r.cfg.ChatSessionExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

// GetChatSession loads an agent chat thread. Sessions older than the
// configured expiry are discarded on read even if the TTL has not fired yet,
// so a thread never continues past the cutoff.
func (r *RedisSession) GetChatSession(ctx context.Context, key string) (model.ChatSession, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetChatSession start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, chatKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ChatSession{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.ChatSession{}, err
	}

	sess := model.ChatSession{}
	if err := json.Unmarshal([]byte(res), &sess); err != nil {
		slog.Error("can't unmarshal chat session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.ChatSession{}, errors.New("can't unmarshal chat session")
	}

	if time.Since(sess.UpdatedAt) > r.cfg.ChatSessionExpiration {
		_ = r.redis.Del(ctx, chatKeyPrefix+key).Err()
		return model.ChatSession{}, ErrNotFound
	}

	slog.Debug("GetChatSession finished", slog.String("rqID", rqID))

	return sess, nil
}

func (r *RedisSession) SetChatSession(ctx context.Context, key string, sess model.ChatSession) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetChatSession start", slog.String("rqID", rqID))

	sess.UpdatedAt = time.Now()

	sessJson, err := json.Marshal(sess)
	if err != nil {
		slog.Error("can't marshal chat session", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return errors.New("can't marshal chat session")
	}

	_, err = r.redis.Set(ctx, chatKeyPrefix+key, sessJson, r.cfg.ChatSessionExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	slog.Debug("SetChatSession finished", slog.String("rqID", rqID))

	return nil
}

func (r *RedisSession) DeleteChatSession(ctx context.Context, key string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := r.redis.Del(ctx, chatKeyPrefix+key).Err(); err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}
