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
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	FeatureType FeatureType    `json:"feature_type"`
	MeterID     *string        `json:"meter_id"`
	Metadata    map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	ID          string         `json:"id"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	MeterID     *string        `json:"meter_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ListRequest struct {
	Key         string
	FeatureType *FeatureType
	PageToken   string
	PageSize    int32
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Features []Response          `json:"features"`
}

type Response struct {
	ID          string         `json:"id"`
	Namespace   string         `json:"namespace"`
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	FeatureType FeatureType    `json:"feature_type"`
	MeterID     *string        `json:"meter_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var (
	ErrInvalidNamespace = errors.New("invalid_namespace")
	ErrInvalidKey       = errors.New("invalid_key")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidType      = errors.New("invalid_feature_type")
	ErrInvalidMeterID   = errors.New("invalid_meter_id")
	ErrInvalidID        = errors.New("invalid_id")
	ErrAlreadyExists    = errors.New("feature_already_exists")
	ErrNotFound         = errors.New("feature_not_found")
)
