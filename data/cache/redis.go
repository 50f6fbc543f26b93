package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/utils"
)

var ErrNotFound = errors.New("not found in cache")

const quoteKeyPrefix = "quote:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshal quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshal quote")
		}

		pipe.Set(ctx, quoteKeyPrefix+quote.Ticker, quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKeyPrefix+ticker).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Quote{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", ticker))
		return model.Quote{}, err
	}

	quote := model.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshal quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Quote{}, errors.New("can't unmarshal quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

// GetQuotes returns cached quotes keyed by ticker. Tickers without a cached
// quote are simply absent from the result, not errors.
func (r *RedisCache) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuotes start", slog.String("rqID", rqID))

	if len(tickers) == 0 {
		return map[string]model.Quote{}, nil
	}

	keys := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		keys = append(keys, quoteKeyPrefix+ticker)
	}

	res, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	quotes := make(map[string]model.Quote, len(tickers))
	for i, raw := range res {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		quote := model.Quote{}
		if err := json.Unmarshal([]byte(s), &quote); err != nil {
			slog.Error(
				"can't unmarshal quote in GetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.String("key", keys[i]),
			)
			continue
		}
		quotes[quote.Ticker] = quote
	}

	slog.Debug("GetQuotes finished", slog.String("rqID", rqID))

	return quotes, nil
}
