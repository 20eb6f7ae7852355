package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/metering/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	// GetByEventType resolves the meter matching an inbound event's type
	// among non-deleted meters. A miss is a configuration error for the
	// event, not a retryable condition.
	GetByEventType(ctx context.Context, eventType string) (*Meter, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Aggregation   Aggregation       `json:"aggregation"`
	EventType     string            `json:"event_type"`
	EventFrom     *time.Time        `json:"event_from"`
	ValueProperty *string           `json:"value_property"`
	GroupBy       map[string]string `json:"group_by"`
}

type UpdateRequest struct {
	ID            string            `json:"id"`
	Name          *string           `json:"name,omitempty"`
	Description   *string           `json:"description,omitempty"`
	ValueProperty *string           `json:"value_property,omitempty"`
	GroupBy       map[string]string `json:"group_by,omitempty"`
}

type ListRequest struct {
	Key       string
	EventType string
	PageToken string
	PageSize  int32
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Meters   []Response          `json:"meters"`
}

type Response struct {
	ID            string            `json:"id"`
	Namespace     string            `json:"namespace"`
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Description   *string           `json:"description,omitempty"`
	Aggregation   Aggregation       `json:"aggregation"`
	EventType     string            `json:"event_type"`
	EventFrom     *time.Time        `json:"event_from,omitempty"`
	ValueProperty *string           `json:"value_property,omitempty"`
	GroupBy       map[string]string `json:"group_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

var (
	ErrInvalidNamespace   = errors.New("invalid_namespace")
	ErrInvalidKey         = errors.New("invalid_key")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidAggregation = errors.New("invalid_aggregation")
	ErrInvalidEventType   = errors.New("invalid_event_type")
	ErrInvalidID          = errors.New("invalid_id")
	ErrAlreadyExists      = errors.New("meter_already_exists")
	ErrNotFound           = errors.New("meter_not_found")
	ErrNoMeterForEvent    = errors.New("no_meter_for_event_type")
)
