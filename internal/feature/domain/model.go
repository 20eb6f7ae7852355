package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FeatureType string

const (
	FeatureTypeBoolean FeatureType = "boolean"
	FeatureTypeMetered FeatureType = "metered"
)

type Feature struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Namespace   string            `gorm:"uniqueIndex:ux_features_namespace_key,where:deleted_at IS NULL" json:"namespace"`
	Key         string            `gorm:"uniqueIndex:ux_features_namespace_key,where:deleted_at IS NULL" json:"key"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Type        FeatureType       `json:"feature_type"`
	MeterID     *snowflake.ID     `json:"meter_id,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Feature) TableName() string { return "features" }
