package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	Report(ctx context.Context, req ReportRequest) (*ReportResponse, error)
}

type QueryRequest struct {
	MeterID    string     `form:"meterId"`
	SubjectID  string     `form:"subjectId"`
	From       time.Time  `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         time.Time  `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	WindowSize WindowSize `form:"windowSize"`
	GroupBy    []string   `form:"groupBy"`
}

type UsageRow struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type QueryResponse struct {
	MeterID    string     `json:"meter_id,omitempty"`
	SubjectID  string     `json:"subject_id,omitempty"`
	From       time.Time  `json:"from"`
	To         time.Time  `json:"to"`
	WindowSize WindowSize `json:"window_size"`
	Data       []UsageRow `json:"data"`
}

type ReportRequest struct {
	MeterID   string    `form:"meterId"`
	SubjectID string    `form:"subjectId"`
	From      time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	GroupBy   []string  `form:"groupBy"`
}

type SubjectUsage struct {
	SubjectID string  `json:"subject_id"`
	Value     float64 `json:"value"`
}

type ReportResponse struct {
	MeterID     string         `json:"meter_id,omitempty"`
	SubjectID   string         `json:"subject_id,omitempty"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Total       float64        `json:"total"`
	TopSubjects []SubjectUsage `json:"top_subjects"`
}

var (
	ErrInvalidNamespace   = errors.New("invalid_namespace")
	ErrInvalidTimeRange   = errors.New("invalid_time_range")
	ErrInvalidWindowSize  = errors.New("invalid_window_size")
	ErrInvalidMeterID     = errors.New("invalid_meter_id")
	ErrInvalidSubjectID   = errors.New("invalid_subject_id")
	ErrGroupByUnsupported = errors.New("group_by_unsupported")
)
