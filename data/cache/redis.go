package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/model/amfiModel"
	"github.com/shiveeg1/fund-agent/utils"
)

const navKeyPrefix = "nav:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// SetNavs caches the latest AMFI feed row per scheme code.
func (r *RedisCache) SetNavs(ctx context.Context, rows []amfiModel.NavRow) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetNavs start", slog.String("rqID", rqID), slog.Int("rows", len(rows)))

	pipe := r.redis.Pipeline()
	for _, row := range rows {
		rowJson, err := json.Marshal(row)
		if err != nil {
			slog.Error(
				"can't marshall nav row in SetNavs",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("row", row),
			)
			return errors.New("can't marshall nav row")
		}

		pipe.Set(ctx, navKeyPrefix+row.SchemeCode, rowJson, r.cfg.Cache.NavExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetNavs completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetNav(ctx context.Context, schemeCode string) (amfiModel.NavRow, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetNav start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, navKeyPrefix+schemeCode).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("schemeCode", schemeCode))
		}
		return amfiModel.NavRow{}, err
	}

	row := amfiModel.NavRow{}
	err = json.Unmarshal([]byte(res), &row)
	if err != nil {
		slog.Error(
			"can't unmarshall nav row in GetNav",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return amfiModel.NavRow{}, errors.New("can't unmarshall nav row")
	}

	slog.Debug("GetNav finished", slog.String("rqID", rqID))

	return row, nil
}
