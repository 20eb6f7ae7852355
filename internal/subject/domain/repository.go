package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subject *Subject) error
	Update(ctx context.Context, db *gorm.DB, subject *Subject) error
	Delete(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) (*Subject, error)
	FindByKey(ctx context.Context, db *gorm.DB, namespace, key string) (*Subject, error)
	List(ctx context.Context, db *gorm.DB, namespace string, filter ListRequest, page pagination.Pagination) ([]*Subject, error)
}
