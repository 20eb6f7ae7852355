package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type WindowSize string

const (
	WindowSecond WindowSize = "SECOND"
	WindowMinute WindowSize = "MINUTE"
	WindowHour   WindowSize = "HOUR"
	WindowDay    WindowSize = "DAY"
	WindowMonth  WindowSize = "MONTH"
)

func (w WindowSize) Valid() bool {
	switch w {
	case WindowSecond, WindowMinute, WindowHour, WindowDay, WindowMonth:
		return true
	}
	return false
}

// Truncate aligns t to the start of its window. All alignment is UTC
// calendar truncation, never a rolling offset from t.
func (w WindowSize) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch w {
	case WindowSecond:
		return t.Truncate(time.Second)
	case WindowMinute:
		return t.Truncate(time.Minute)
	case WindowHour:
		return t.Truncate(time.Hour)
	case WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case WindowMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// UsageAggregate is a materialized daily rollup. Live queries always compute
// from raw events; the scheduler fills this table so long-retention totals
// survive event pruning.
type UsageAggregate struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Namespace   string            `gorm:"not null;uniqueIndex:ux_usage_aggregates_window" json:"namespace"`
	MeterID     snowflake.ID      `gorm:"not null;uniqueIndex:ux_usage_aggregates_window" json:"meter_id"`
	SubjectID   snowflake.ID      `gorm:"not null;uniqueIndex:ux_usage_aggregates_window" json:"subject_id"`
	PeriodStart time.Time         `gorm:"not null;uniqueIndex:ux_usage_aggregates_window" json:"period_start"`
	PeriodEnd   time.Time         `gorm:"not null" json:"period_end"`
	AggType     string            `gorm:"not null" json:"agg_type"`
	Value       float64           `gorm:"not null" json:"value"`
	GroupBy     datatypes.JSONMap `json:"group_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (UsageAggregate) TableName() string {
	return "usage_aggregates"
}
