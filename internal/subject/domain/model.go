package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Subject struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	Namespace        string            `gorm:"uniqueIndex:ux_subjects_namespace_key,where:deleted_at IS NULL" json:"namespace"`
	Key              string            `gorm:"uniqueIndex:ux_subjects_namespace_key,where:deleted_at IS NULL" json:"key"`
	DisplayName      *string           `json:"display_name,omitempty"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	StripeCustomerID *string           `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Subject) TableName() string { return "subjects" }
