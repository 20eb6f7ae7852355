package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	featuredomain "github.com/railzwaylabs/metering/internal/feature/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() featuredomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, f *featuredomain.Feature) error {
	return db.WithContext(ctx).Create(f).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, f *featuredomain.Feature) error {
	return db.WithContext(ctx).Save(f).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		Delete(&featuredomain.Feature{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) (*featuredomain.Feature, error) {
	var feature featuredomain.Feature
	err := db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		First(&feature).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, namespace, key string) (*featuredomain.Feature, error) {
	var feature featuredomain.Feature
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		First(&feature).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, namespace string, filter featuredomain.ListRequest, page pagination.Pagination) ([]*featuredomain.Feature, error) {
	var features []*featuredomain.Feature
	stmt := db.WithContext(ctx).
		Model(&featuredomain.Feature{}).
		Where("namespace = ?", namespace)

	if filter.Key != "" {
		stmt = stmt.Where("key = ?", filter.Key)
	}
	if filter.FeatureType != nil {
		stmt = stmt.Where("type = ?", *filter.FeatureType)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}

	if err := stmt.Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}
