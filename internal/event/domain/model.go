package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event is one measurement occurrence. Rows are immutable once written;
// there is no update or delete path.
type Event struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Namespace  string            `gorm:"index:ix_events_namespace_timestamp" json:"namespace"`
	MeterID    snowflake.ID      `gorm:"index:ix_events_meter_timestamp" json:"meter_id"`
	SubjectID  snowflake.ID      `gorm:"index" json:"subject_id"`
	Timestamp  time.Time         `gorm:"index:ix_events_meter_timestamp;index:ix_events_namespace_timestamp" json:"timestamp"`
	Value      float64           `json:"value"`
	Properties datatypes.JSONMap `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (Event) TableName() string { return "events" }
