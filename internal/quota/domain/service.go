package domain

import (
	"context"
	"errors"
)

// Service caps how many events a namespace may ingest per calendar month.
// It is an operational guard, not request rate limiting.
type Service interface {
	CanIngestEvent(ctx context.Context, namespace string) error
}

var ErrNamespaceEventsQuotaExceeded = errors.New("namespace_events_quota_exceeded")
