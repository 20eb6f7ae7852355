package domain

import (
	"context"
	"errors"
	"time"
)

type IngestEventRequest struct {
	Subject    string         `json:"subject"`
	Type       string         `json:"type"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
	Value      *float64       `json:"value,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type IngestResponse struct {
	EventID   string    `json:"event_id"`
	Processed bool      `json:"processed"`
	Timestamp time.Time `json:"timestamp"`

	// Replayed marks a result served from the idempotency cache rather than
	// a fresh ingest; the transport layer signals it with a different status.
	Replayed bool `json:"-"`
}

type IngestBatchRequest struct {
	Events []IngestEventRequest `json:"events"`
}

type IngestBatchResponse struct {
	TotalEvents     int      `json:"total_events"`
	ProcessedEvents int      `json:"processed_events"`
	FailedEvents    int      `json:"failed_events"`
	Errors          []string `json:"errors"`

	Replayed bool `json:"-"`
}

type ListRequest struct {
	MeterID   string
	SubjectID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type ListResponse struct {
	Events     []Response `json:"events"`
	TotalCount int64      `json:"total_count"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

type Response struct {
	ID         string         `json:"id"`
	MeterID    string         `json:"meter_id"`
	SubjectID  string         `json:"subject_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Value      float64        `json:"value"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Service interface {
	// Ingest processes one event. A non-empty idempotencyKey makes repeated
	// deliveries of the same logical request safe: the first stored result
	// is replayed verbatim.
	Ingest(ctx context.Context, req IngestEventRequest, idempotencyKey string) (*IngestResponse, error)

	// IngestBatch processes up to the configured maximum of events
	// sequentially, in chunks. Per-event failures are recorded by position
	// and never abort sibling events.
	IngestBatch(ctx context.Context, req IngestBatchRequest, idempotencyKey string) (*IngestBatchResponse, error)

	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidNamespace      = errors.New("invalid_namespace")
	ErrInvalidSubject        = errors.New("invalid_subject")
	ErrInvalidEventType      = errors.New("invalid_event_type")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
	ErrEmptyBatch            = errors.New("empty_batch")
	ErrBatchTooLarge         = errors.New("batch_too_large")
	ErrInvalidMeterID        = errors.New("invalid_meter_id")
	ErrInvalidSubjectID      = errors.New("invalid_subject_id")
)
