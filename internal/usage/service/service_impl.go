package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/internal/cache"
	"github.com/railzwaylabs/metering/internal/config"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/internal/observability"
	"github.com/railzwaylabs/metering/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reportTopSubjects = 10

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Cache    cache.Cache
	Metrics  *observability.Metrics
	Repo     domain.Repository
	MeterSvc meterdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.UsageConfig
	cache    cache.Cache
	metrics  *observability.Metrics
	repo     domain.Repository
	meterSvc meterdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("usage.service"),
		cfg:      p.Config.Usage,
		cache:    p.Cache,
		metrics:  p.Metrics,
		repo:     p.Repo,
		meterSvc: p.MeterSvc,
	}
}

func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}
	if len(req.GroupBy) > 0 {
		return nil, domain.ErrGroupByUnsupported
	}

	window := req.WindowSize
	if window == "" {
		window = domain.WindowHour
	}
	if !window.Valid() {
		return nil, domain.ErrInvalidWindowSize
	}

	filter, fn, err := s.resolveFilter(ctx, namespace, req.MeterID, req.SubjectID, req.From, req.To)
	if err != nil {
		return nil, err
	}

	cacheKey := s.queryCacheKey(namespace, "query", req.MeterID, req.SubjectID, req.From, req.To, string(window))
	var cached domain.QueryResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("usage cache read failed", zap.Error(err))
	} else if hit {
		s.metrics.CacheHits.WithLabelValues("usage_query").Inc()
		return &cached, nil
	}

	start := time.Now()
	buckets, err := s.repo.AggregateBuckets(ctx, s.db, *filter, window, fn)
	s.metrics.UsageQueryDuration.WithLabelValues("query").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	data := make([]domain.UsageRow, 0, len(buckets))
	for _, b := range buckets {
		data = append(data, domain.UsageRow{Timestamp: b.WindowStart, Value: b.Value})
	}

	resp := &domain.QueryResponse{
		MeterID:    req.MeterID,
		SubjectID:  req.SubjectID,
		From:       req.From.UTC(),
		To:         req.To.UTC(),
		WindowSize: window,
		Data:       data,
	}
	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.QueryCacheTTL); err != nil {
		s.log.Warn("usage cache write failed", zap.Error(err))
	}
	return resp, nil
}

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (*domain.ReportResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}
	if len(req.GroupBy) > 0 {
		return nil, domain.ErrGroupByUnsupported
	}

	filter, fn, err := s.resolveFilter(ctx, namespace, req.MeterID, req.SubjectID, req.From, req.To)
	if err != nil {
		return nil, err
	}

	cacheKey := s.queryCacheKey(namespace, "report", req.MeterID, req.SubjectID, req.From, req.To, "")
	var cached domain.ReportResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warn("usage cache read failed", zap.Error(err))
	} else if hit {
		s.metrics.CacheHits.WithLabelValues("usage_report").Inc()
		return &cached, nil
	}

	start := time.Now()
	total, err := s.repo.Total(ctx, s.db, *filter, fn)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.SubjectTotals(ctx, s.db, *filter, fn, reportTopSubjects)
	s.metrics.UsageQueryDuration.WithLabelValues("report").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	top := make([]domain.SubjectUsage, 0, len(subjects))
	for _, st := range subjects {
		top = append(top, domain.SubjectUsage{SubjectID: st.SubjectID.String(), Value: st.Value})
	}

	resp := &domain.ReportResponse{
		MeterID:     req.MeterID,
		SubjectID:   req.SubjectID,
		From:        req.From.UTC(),
		To:          req.To.UTC(),
		Total:       total,
		TopSubjects: top,
	}
	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.QueryCacheTTL); err != nil {
		s.log.Warn("usage cache write failed", zap.Error(err))
	}
	return resp, nil
}

// resolveFilter validates the time range and optional IDs, and picks the
// aggregate function. COUNT meters aggregate by row count; everything else,
// a missing meter filter included, sums the stored value.
func (s *Service) resolveFilter(ctx context.Context, namespace, meterID, subjectID string, from, to time.Time) (*domain.Filter, domain.AggregateFunc, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, "", domain.ErrInvalidTimeRange
	}

	filter := domain.Filter{
		Namespace: namespace,
		From:      from.UTC(),
		To:        to.UTC(),
	}
	fn := domain.AggregateSum

	if meterID != "" {
		id, err := snowflake.ParseString(meterID)
		if err != nil {
			return nil, "", domain.ErrInvalidMeterID
		}
		meter, err := s.meterSvc.GetByID(ctx, meterID)
		if err != nil {
			return nil, "", err
		}
		if meter.Aggregation == meterdomain.AggregationCount {
			fn = domain.AggregateCount
		}
		filter.MeterID = &id
	}
	if subjectID != "" {
		id, err := snowflake.ParseString(subjectID)
		if err != nil {
			return nil, "", domain.ErrInvalidSubjectID
		}
		filter.SubjectID = &id
	}
	return &filter, fn, nil
}

func (s *Service) queryCacheKey(namespace, op, meterID, subjectID string, from, to time.Time, window string) string {
	params := strings.Join([]string{
		meterID,
		subjectID,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
		window,
	}, "|")
	sum := sha256.Sum256([]byte(params))
	return fmt.Sprintf("usage:%s:%s:%s", namespace, op, hex.EncodeToString(sum[:8]))
}
