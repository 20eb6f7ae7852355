package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, meter *Meter) error
	Update(ctx context.Context, db *gorm.DB, meter *Meter) error
	// Delete soft-deletes; the row stays but drops out of every default scope.
	Delete(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) (*Meter, error)
	FindByKey(ctx context.Context, db *gorm.DB, namespace, key string) (*Meter, error)
	FindByEventType(ctx context.Context, db *gorm.DB, namespace, eventType string) (*Meter, error)
	List(ctx context.Context, db *gorm.DB, namespace string, filter ListRequest, page pagination.Pagination) ([]*Meter, error)
}
