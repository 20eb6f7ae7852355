package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/railzwaylabs/metering/internal/cache"
	"github.com/railzwaylabs/metering/internal/clock"
	"github.com/railzwaylabs/metering/internal/config"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	"github.com/railzwaylabs/metering/internal/event/repository"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	meterrepo "github.com/railzwaylabs/metering/internal/meter/repository"
	meterservice "github.com/railzwaylabs/metering/internal/meter/service"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/internal/observability"
	quotadomain "github.com/railzwaylabs/metering/internal/quota/domain"
	quotaservice "github.com/railzwaylabs/metering/internal/quota/service"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	subjectrepo "github.com/railzwaylabs/metering/internal/subject/repository"
	subjectservice "github.com/railzwaylabs/metering/internal/subject/service"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	svc      eventdomain.Service
	meterSvc meterdomain.Service
	db       *gorm.DB
	mr       *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&meterdomain.Meter{},
		&subjectdomain.Subject{},
		&eventdomain.Event{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	c := cache.NewRedisCache(client)
	logger := zap.NewNop()

	cfg := config.Config{
		Ingest: config.IngestConfig{
			MaxBatchSize:   1000,
			ChunkSize:      100,
			IdempotencyTTL: 24 * time.Hour,
		},
	}

	meterSvc := meterservice.New(meterservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  meterrepo.Provide(),
	})
	subjectSvc := subjectservice.New(subjectservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  subjectrepo.Provide(),
	})
	quotaSvc := quotaservice.New(quotaservice.Params{
		Redis:  client,
		Log:    logger,
		Config: cfg,
		Clock:  clock.SystemClock{},
	})

	svc := New(Params{
		DB:         db,
		Log:        logger,
		GenID:      node,
		Config:     cfg,
		Cache:      c,
		Clock:      clock.SystemClock{},
		Metrics:    observability.NewMetrics(prometheus.NewRegistry()),
		Repo:       repository.Provide(),
		MeterSvc:   meterSvc,
		SubjectSvc: subjectSvc,
		QuotaSvc:   quotaSvc,
	})

	return &harness{svc: svc, meterSvc: meterSvc, db: db, mr: mr}
}

func nsCtx(ns string) context.Context {
	return nscontext.WithNamespace(context.Background(), ns)
}

func (h *harness) createMeter(t *testing.T, ctx context.Context, req meterdomain.CreateRequest) *meterdomain.Response {
	t.Helper()
	resp, err := h.meterSvc.Create(ctx, req)
	require.NoError(t, err)
	return resp
}

func (h *harness) eventCount(t *testing.T, ns string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&eventdomain.Event{}).Where("namespace = ?", ns).Count(&count).Error)
	return count
}

func TestIngest_ValueExtractionPriority(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-extract")

	valueProp := "amount"
	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:           "with-prop",
		Name:          "With Property",
		Aggregation:   meterdomain.AggregationSum,
		EventType:     "prop_event",
		ValueProperty: &valueProp,
	})
	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "plain-sum",
		Name:        "Plain Sum",
		Aggregation: meterdomain.AggregationSum,
		EventType:   "sum_event",
	})
	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "plain-count",
		Name:        "Plain Count",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "count_event",
	})

	five := 5.0

	// Property value beats the explicit payload value.
	resp, err := h.svc.Ingest(ctx, eventdomain.IngestEventRequest{
		Subject:    "c1",
		Type:       "prop_event",
		Value:      &five,
		Properties: map[string]any{"amount": 10.0},
	}, "")
	require.NoError(t, err)

	var stored eventdomain.Event
	require.NoError(t, h.db.Where("namespace = ?", "ns-extract").Order("id desc").First(&stored).Error)
	assert.Equal(t, 10.0, stored.Value)
	assert.Equal(t, resp.EventID, stored.ID.String())

	// Explicit value when no property configured.
	_, err = h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "sum_event", Value: &five}, "")
	require.NoError(t, err)
	stored = eventdomain.Event{}
	require.NoError(t, h.db.Where("namespace = ?", "ns-extract").Order("id desc").First(&stored).Error)
	assert.Equal(t, 5.0, stored.Value)

	// COUNT default is one.
	_, err = h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "count_event"}, "")
	require.NoError(t, err)
	stored = eventdomain.Event{}
	require.NoError(t, h.db.Where("namespace = ?", "ns-extract").Order("id desc").First(&stored).Error)
	assert.Equal(t, 1.0, stored.Value)

	// SUM default is zero.
	_, err = h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "sum_event"}, "")
	require.NoError(t, err)
	stored = eventdomain.Event{}
	require.NoError(t, h.db.Where("namespace = ?", "ns-extract").Order("id desc").First(&stored).Error)
	assert.Equal(t, 0.0, stored.Value)
}

func TestIngest_IdempotentReplay(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-replay")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "requests",
		Name:        "Requests",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "request",
	})

	req := eventdomain.IngestEventRequest{Subject: "c1", Type: "request"}

	first, err := h.svc.Ingest(ctx, req, "idem-key-1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := h.svc.Ingest(ctx, req, "idem-key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.EventID, second.EventID)

	assert.Equal(t, int64(1), h.eventCount(t, "ns-replay"))
}

func TestIngest_NoMeterForEventType(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-nometer")

	_, err := h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "unknown"}, "")
	assert.ErrorIs(t, err, meterdomain.ErrNoMeterForEvent)
	assert.Equal(t, int64(0), h.eventCount(t, "ns-nometer"))
}

func TestIngest_DeletedMeterDoesNotResolve(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-deleted")

	resp := h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "gone",
		Name:        "Gone",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "gone_event",
	})
	require.NoError(t, h.meterSvc.Delete(ctx, resp.ID))

	_, err := h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "gone_event"}, "")
	assert.ErrorIs(t, err, meterdomain.ErrNoMeterForEvent)
}

func TestIngest_SubjectAutoCreation(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-autocreate")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "calls",
		Name:        "Calls",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "call",
	})

	_, err := h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "brand-new", Type: "call"}, "")
	require.NoError(t, err)

	var subjects []subjectdomain.Subject
	require.NoError(t, h.db.Where("namespace = ? AND key = ?", "ns-autocreate", "brand-new").Find(&subjects).Error)
	require.Len(t, subjects, 1)
	require.NotNil(t, subjects[0].DisplayName)
	assert.Equal(t, "brand-new", *subjects[0].DisplayName)
	assert.Equal(t, int64(1), h.eventCount(t, "ns-autocreate"))
}

func TestIngestBatch_PartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-partial")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "good",
		Name:        "Good",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "good_event",
	})

	resp, err := h.svc.IngestBatch(ctx, eventdomain.IngestBatchRequest{
		Events: []eventdomain.IngestEventRequest{
			{Subject: "c1", Type: "good_event"},
			{Subject: "c1", Type: "bad_event"},
			{Subject: "c2", Type: "good_event"},
		},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalEvents)
	assert.Equal(t, 2, resp.ProcessedEvents)
	assert.Equal(t, 1, resp.FailedEvents)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "Event 1:")
	assert.Equal(t, int64(2), h.eventCount(t, "ns-partial"))
}

func TestIngestBatch_SizeBound(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-batch-cap")

	events := make([]eventdomain.IngestEventRequest, 1001)
	for i := range events {
		events[i] = eventdomain.IngestEventRequest{Subject: fmt.Sprintf("c%d", i), Type: "any"}
	}

	_, err := h.svc.IngestBatch(ctx, eventdomain.IngestBatchRequest{Events: events}, "")
	assert.ErrorIs(t, err, eventdomain.ErrBatchTooLarge)
	assert.Equal(t, int64(0), h.eventCount(t, "ns-batch-cap"))
}

func TestIngestBatch_IdempotentReplay(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-batch-idem")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "m",
		Name:        "M",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "e",
	})

	req := eventdomain.IngestBatchRequest{
		Events: []eventdomain.IngestEventRequest{{Subject: "c1", Type: "e"}},
	}

	first, err := h.svc.IngestBatch(ctx, req, "batch-key")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := h.svc.IngestBatch(ctx, req, "batch-key")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ProcessedEvents, second.ProcessedEvents)
	assert.Equal(t, int64(1), h.eventCount(t, "ns-batch-idem"))
}

func TestIngest_CacheOutageDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-cachefail")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "m",
		Name:        "M",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "e",
	})

	h.mr.Close()

	resp, err := h.svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "e"}, "key-during-outage")
	require.NoError(t, err)
	assert.True(t, resp.Processed)
	assert.Equal(t, int64(1), h.eventCount(t, "ns-cachefail"))
}

// -- Quota gating via mock --

type quotaMock struct {
	mock.Mock
}

func (m *quotaMock) CanIngestEvent(ctx context.Context, namespace string) error {
	return m.Called(ctx, namespace).Error(0)
}

func TestIngest_QuotaExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-quota")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "m",
		Name:        "M",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "e",
	})

	mockQuota := new(quotaMock)
	mockQuota.On("CanIngestEvent", mock.Anything, "ns-quota").Return(quotadomain.ErrNamespaceEventsQuotaExceeded)

	svc := h.svc.(*Service)
	svc.quotaSvc = mockQuota

	_, err := svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c1", Type: "e"}, "")
	assert.ErrorIs(t, err, quotadomain.ErrNamespaceEventsQuotaExceeded)
	assert.Equal(t, int64(0), h.eventCount(t, "ns-quota"))
}

func TestIngestBatch_UnmatchedEventsDoNotConsumeQuota(t *testing.T) {
	h := newHarness(t)
	ctx := nsCtx("ns-quota-batch")

	h.createMeter(t, ctx, meterdomain.CreateRequest{
		Key:         "api-calls",
		Name:        "API Calls",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "api_call",
	})

	client := redislib.NewClient(&redislib.Options{Addr: h.mr.Addr()})
	svc := h.svc.(*Service)
	svc.quotaSvc = quotaservice.New(quotaservice.Params{
		Redis: client,
		Log:   zap.NewNop(),
		Config: config.Config{Quota: config.QuotaConfig{
			Enabled:                true,
			NamespaceEventsMonthly: 2,
		}},
		Clock: clock.SystemClock{},
	})

	resp, err := svc.IngestBatch(ctx, eventdomain.IngestBatchRequest{
		Events: []eventdomain.IngestEventRequest{
			{Subject: "c1", Type: "bogus_type"},
			{Subject: "c2", Type: "bogus_type"},
			{Subject: "c3", Type: "api_call"},
			{Subject: "c4", Type: "api_call"},
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ProcessedEvents)
	assert.Equal(t, 2, resp.FailedEvents)
	assert.Equal(t, int64(2), h.eventCount(t, "ns-quota-batch"))

	_, err = svc.Ingest(ctx, eventdomain.IngestEventRequest{Subject: "c5", Type: "api_call"}, "")
	assert.ErrorIs(t, err, quotadomain.ErrNamespaceEventsQuotaExceeded)
}
