package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Aggregation names the rollup function a meter applies to its events.
type Aggregation string

const (
	AggregationSum         Aggregation = "SUM"
	AggregationCount       Aggregation = "COUNT"
	AggregationAvg         Aggregation = "AVG"
	AggregationMin         Aggregation = "MIN"
	AggregationMax         Aggregation = "MAX"
	AggregationUniqueCount Aggregation = "UNIQUE_COUNT"
	AggregationLatest      Aggregation = "LATEST"
)

func (a Aggregation) Valid() bool {
	switch a {
	case AggregationSum, AggregationCount, AggregationAvg, AggregationMin,
		AggregationMax, AggregationUniqueCount, AggregationLatest:
		return true
	}
	return false
}

type Meter struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Namespace     string            `gorm:"uniqueIndex:ux_meters_namespace_key,where:deleted_at IS NULL;index:ix_meters_namespace_event_type" json:"namespace"`
	Key           string            `gorm:"uniqueIndex:ux_meters_namespace_key,where:deleted_at IS NULL" json:"key"`
	Name          string            `json:"name"`
	Description   *string           `json:"description,omitempty"`
	Aggregation   Aggregation       `json:"aggregation"`
	EventType     string            `gorm:"index:ix_meters_namespace_event_type" json:"event_type"`
	EventFrom     *time.Time        `json:"event_from,omitempty"`
	ValueProperty *string           `json:"value_property,omitempty"`
	GroupBy       datatypes.JSONMap `json:"group_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Meter) TableName() string { return "meters" }
