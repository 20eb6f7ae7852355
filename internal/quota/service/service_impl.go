package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/metering/internal/clock"
	"github.com/railzwaylabs/metering/internal/config"
	quotadomain "github.com/railzwaylabs/metering/internal/quota/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Redis  *redis.Client
	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
}

type service struct {
	redis *redis.Client
	log   *zap.Logger
	cfg   config.QuotaConfig
	clock clock.Clock
}

func New(p Params) quotadomain.Service {
	return &service{
		redis: p.Redis,
		log:   p.Log.Named("quota.service"),
		cfg:   p.Config.Quota,
		clock: p.Clock,
	}
}

func (s *service) CanIngestEvent(ctx context.Context, namespace string) error {
	if !s.cfg.Enabled {
		return nil
	}

	// Key: quota:events:{namespace}:{YYYY-MM}
	now := s.clock.Now(ctx)
	key := fmt.Sprintf("quota:events:%s:%s", namespace, now.Format("2006-01"))

	val, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		s.log.Error("failed to increment event quota", zap.Error(err))
		// Fail open; redis trouble must not block ingestion.
		return nil
	}

	// 35 days covers the longest month plus clock skew.
	if val == 1 {
		s.redis.Expire(ctx, key, 35*24*time.Hour)
	}

	if val > int64(s.cfg.NamespaceEventsMonthly) {
		return quotadomain.ErrNamespaceEventsQuotaExceeded
	}

	return nil
}
