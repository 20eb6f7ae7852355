package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/internal/clock"
	"github.com/railzwaylabs/metering/internal/config"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	usagedomain "github.com/railzwaylabs/metering/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Config    config.Config
	Clock     clock.Clock
	UsageRepo usagedomain.Repository
}

// Scheduler runs the periodic maintenance jobs: daily rollup materialization
// and raw event retention. Live queries never read the rollups, so a missed
// run only delays pruning.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.SchedulerConfig
	clock     clock.Clock
	usageRepo usagedomain.Repository

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		genID:     p.GenID,
		cfg:       p.Config.Scheduler,
		clock:     p.Clock,
		usageRepo: p.UsageRepo,
	}
}

func (s *Scheduler) Start() {
	if !s.cfg.RollupEnabled {
		s.log.Info("scheduler disabled")
		return
	}
	interval := s.cfg.RollupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.RollupJob(ctx); err != nil {
		s.log.Error("rollup job failed", zap.Error(err))
	}
	if err := s.RetentionJob(ctx); err != nil {
		s.log.Error("retention job failed", zap.Error(err))
	}
}

// RollupJob materializes yesterday's per-subject daily totals into
// usage_aggregates. Re-running for the same day overwrites the prior rows,
// so the job is safe to repeat.
func (s *Scheduler) RollupJob(ctx context.Context) error {
	now := s.clock.Now(ctx).UTC()
	dayStart := usagedomain.WindowDay.Truncate(now.AddDate(0, 0, -1))
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	var rows []struct {
		Namespace   string
		MeterID     int64
		SubjectID   int64
		Aggregation string
		SumValue    float64
		CountValue  float64
	}
	err := s.db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Select("events.namespace, events.meter_id, events.subject_id, meters.aggregation, COALESCE(SUM(events.value), 0) AS sum_value, COUNT(*) AS count_value").
		Joins("JOIN meters ON meters.id = events.meter_id").
		Where("events.timestamp >= ? AND events.timestamp <= ?", dayStart, dayEnd).
		Group("events.namespace, events.meter_id, events.subject_id, meters.aggregation").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		aggType := string(usagedomain.AggregateSum)
		value := row.SumValue
		if meterdomain.Aggregation(row.Aggregation) == meterdomain.AggregationCount {
			aggType = string(usagedomain.AggregateCount)
			value = row.CountValue
		}
		agg := &usagedomain.UsageAggregate{
			ID:          s.genID.Generate(),
			Namespace:   row.Namespace,
			MeterID:     snowflake.ID(row.MeterID),
			SubjectID:   snowflake.ID(row.SubjectID),
			PeriodStart: dayStart,
			PeriodEnd:   dayEnd,
			AggType:     aggType,
			Value:       value,
		}
		if err := s.usageRepo.UpsertAggregate(ctx, s.db, agg); err != nil {
			return err
		}
	}

	s.log.Info("rollup completed",
		zap.Time("period_start", dayStart),
		zap.Int("rows", len(rows)))
	return nil
}

// RetentionJob prunes raw events older than the retention horizon. Rollups
// cover the pruned range, so totals remain queryable from usage_aggregates.
func (s *Scheduler) RetentionJob(ctx context.Context) error {
	if s.cfg.EventRetentionDays <= 0 {
		return nil
	}

	cutoff := s.clock.Now(ctx).UTC().AddDate(0, 0, -s.cfg.EventRetentionDays)
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&eventdomain.Event{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		s.log.Info("retention pruned events",
			zap.Time("cutoff", cutoff),
			zap.Int64("deleted", result.RowsAffected))
	}
	return nil
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)
