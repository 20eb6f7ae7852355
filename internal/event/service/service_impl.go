package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/internal/cache"
	"github.com/railzwaylabs/metering/internal/clock"
	"github.com/railzwaylabs/metering/internal/config"
	"github.com/railzwaylabs/metering/internal/event/domain"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/internal/observability"
	quotadomain "github.com/railzwaylabs/metering/internal/quota/domain"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxIdempotencyKeyLen = 255

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Cache      cache.Cache
	Clock      clock.Clock
	Metrics    *observability.Metrics
	Repo       domain.Repository
	MeterSvc   meterdomain.Service
	SubjectSvc subjectdomain.Service
	QuotaSvc   quotadomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.IngestConfig
	cache      cache.Cache
	clock      clock.Clock
	metrics    *observability.Metrics
	repo       domain.Repository
	meterSvc   meterdomain.Service
	subjectSvc subjectdomain.Service
	quotaSvc   quotadomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("event.service"),
		genID:      p.GenID,
		cfg:        p.Config.Ingest,
		cache:      p.Cache,
		clock:      p.Clock,
		metrics:    p.Metrics,
		repo:       p.Repo,
		meterSvc:   p.MeterSvc,
		subjectSvc: p.SubjectSvc,
		quotaSvc:   p.QuotaSvc,
	}
}

// Idempotency is at-least-once: two concurrent deliveries of the same key may
// both reach storage before either writes the cache entry. The cache read and
// write are both best-effort; a cache outage degrades to plain ingestion.
func (s *Service) Ingest(ctx context.Context, req domain.IngestEventRequest, idempotencyKey string) (*domain.IngestResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return nil, domain.ErrInvalidIdempotencyKey
	}

	if idempotencyKey != "" {
		var stored domain.IngestResponse
		found, err := s.cache.Get(ctx, idempotencyCacheKey(namespace, "single", idempotencyKey), &stored)
		if err != nil {
			s.log.Warn("idempotency cache read failed", zap.Error(err))
		} else if found {
			s.metrics.CacheHits.WithLabelValues("idempotency").Inc()
			stored.Replayed = true
			return &stored, nil
		}
	}

	resp, err := s.ingestOne(ctx, namespace, req)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if err := s.cache.Set(ctx, idempotencyCacheKey(namespace, "single", idempotencyKey), resp, s.cfg.IdempotencyTTL); err != nil {
			s.log.Warn("idempotency cache write failed", zap.Error(err))
		}
	}

	s.invalidateUsageCache(ctx, namespace)

	return resp, nil
}

func (s *Service) IngestBatch(ctx context.Context, req domain.IngestBatchRequest, idempotencyKey string) (*domain.IngestBatchResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	if len(req.Events) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	// Oversized batches are rejected wholesale before any event is touched.
	if len(req.Events) > s.cfg.MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return nil, domain.ErrInvalidIdempotencyKey
	}

	if idempotencyKey != "" {
		var stored domain.IngestBatchResponse
		found, err := s.cache.Get(ctx, idempotencyCacheKey(namespace, "batch", idempotencyKey), &stored)
		if err != nil {
			s.log.Warn("idempotency cache read failed", zap.Error(err))
		} else if found {
			s.metrics.CacheHits.WithLabelValues("idempotency").Inc()
			stored.Replayed = true
			return &stored, nil
		}
	}

	resp := &domain.IngestBatchResponse{
		TotalEvents: len(req.Events),
		Errors:      []string{},
	}

	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(req.Events)
	}

	// Events are processed sequentially in chunks. A failed event is
	// recorded and the rest of the batch continues.
	for start := 0; start < len(req.Events); start += chunkSize {
		end := start + chunkSize
		if end > len(req.Events) {
			end = len(req.Events)
		}
		for i := start; i < end; i++ {
			if _, err := s.ingestOne(ctx, namespace, req.Events[i]); err != nil {
				resp.FailedEvents++
				resp.Errors = append(resp.Errors, fmt.Sprintf("Event %d: %s", i, err.Error()))
				continue
			}
			resp.ProcessedEvents++
		}
	}

	if idempotencyKey != "" {
		if err := s.cache.Set(ctx, idempotencyCacheKey(namespace, "batch", idempotencyKey), resp, s.cfg.IdempotencyTTL); err != nil {
			s.log.Warn("idempotency cache write failed", zap.Error(err))
		}
	}

	if resp.ProcessedEvents > 0 {
		s.invalidateUsageCache(ctx, namespace)
	}

	return resp, nil
}

func (s *Service) ingestOne(ctx context.Context, namespace string, req domain.IngestEventRequest) (*domain.IngestResponse, error) {
	subjectKey := strings.TrimSpace(req.Subject)
	if subjectKey == "" {
		return nil, domain.ErrInvalidSubject
	}
	eventType := strings.TrimSpace(req.Type)
	if eventType == "" {
		return nil, domain.ErrInvalidEventType
	}

	subject, err := s.subjectSvc.GetOrCreate(ctx, subjectKey)
	if err != nil {
		return nil, err
	}

	meter, err := s.meterSvc.GetByEventType(ctx, eventType)
	if err != nil {
		s.metrics.IngestFailures.WithLabelValues(namespace, "no_meter").Inc()
		return nil, err
	}

	value := extractValue(meter, req.Value, req.Properties)

	// Quota is charged only once the event has resolved to a meter, so a
	// stream of unmatched event types does not consume the namespace cap.
	if err := s.quotaSvc.CanIngestEvent(ctx, namespace); err != nil {
		s.metrics.IngestFailures.WithLabelValues(namespace, "quota").Inc()
		return nil, err
	}

	timestamp := s.clock.Now(ctx)
	if req.Timestamp != nil {
		timestamp = req.Timestamp.UTC()
	}

	record := &domain.Event{
		ID:        s.genID.Generate(),
		Namespace: namespace,
		MeterID:   meter.ID,
		SubjectID: subject.ID,
		Timestamp: timestamp,
		Value:     value,
		CreatedAt: s.clock.Now(ctx),
	}
	if req.Properties != nil {
		record.Properties = datatypes.JSONMap(req.Properties)
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		s.metrics.IngestFailures.WithLabelValues(namespace, "storage").Inc()
		return nil, err
	}

	s.metrics.EventsIngested.WithLabelValues(namespace).Inc()

	return &domain.IngestResponse{
		EventID:   record.ID.String(),
		Processed: true,
		Timestamp: record.Timestamp,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidNamespace
	}

	filter := domain.ListFilter{
		From:   req.From,
		To:     req.To,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	if req.MeterID != "" {
		id, err := snowflake.ParseString(req.MeterID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidMeterID
		}
		filter.MeterID = &id
	}
	if req.SubjectID != "" {
		id, err := snowflake.ParseString(req.SubjectID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidSubjectID
		}
		filter.SubjectID = &id
	}

	events, total, err := s.repo.List(ctx, s.db, namespace, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := make([]domain.Response, 0, len(events))
	for _, e := range events {
		item := domain.Response{
			ID:        e.ID.String(),
			MeterID:   e.MeterID.String(),
			SubjectID: e.SubjectID.String(),
			Timestamp: e.Timestamp,
			Value:     e.Value,
			CreatedAt: e.CreatedAt,
		}
		if len(e.Properties) > 0 {
			item.Properties = map[string]any(e.Properties)
		}
		resp = append(resp, item)
	}

	return domain.ListResponse{
		Events:     resp,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (s *Service) invalidateUsageCache(ctx context.Context, namespace string) {
	if err := s.cache.DeleteByPrefix(ctx, usageCachePrefix(namespace)); err != nil {
		s.log.Warn("usage cache invalidation failed", zap.Error(err))
	}
}

func idempotencyCacheKey(namespace, kind, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", namespace, kind, key)
}

func usageCachePrefix(namespace string) string {
	return fmt.Sprintf("usage:%s:", namespace)
}
