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

	// GetOrCreate resolves a subject by key, lazily creating it on first
	// sight. Creation is at-least-once: a concurrent first-writer losing the
	// unique-index race falls back to re-reading the winner's row.
	GetOrCreate(ctx context.Context, key string) (*Subject, error)
}

type CreateRequest struct {
	Key              string         `json:"key"`
	DisplayName      *string        `json:"display_name"`
	Metadata         map[string]any `json:"metadata"`
	StripeCustomerID *string        `json:"stripe_customer_id"`
}

type UpdateRequest struct {
	ID               string         `json:"id"`
	DisplayName      *string        `json:"display_name,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	StripeCustomerID *string        `json:"stripe_customer_id,omitempty"`
}

type ListRequest struct {
	Key       string
	PageToken string
	PageSize  int32
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Subjects []Response          `json:"subjects"`
}

type Response struct {
	ID               string         `json:"id"`
	Namespace        string         `json:"namespace"`
	Key              string         `json:"key"`
	DisplayName      *string        `json:"display_name,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	StripeCustomerID *string        `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

var (
	ErrInvalidNamespace = errors.New("invalid_namespace")
	ErrInvalidKey       = errors.New("invalid_subject_key")
	ErrInvalidID        = errors.New("invalid_id")
	ErrAlreadyExists    = errors.New("subject_already_exists")
	ErrNotFound         = errors.New("subject_not_found")
)
