package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() meterdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *meterdomain.Meter) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *meterdomain.Meter) error {
	return db.WithContext(ctx).Save(m).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		Delete(&meterdomain.Meter{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) (*meterdomain.Meter, error) {
	var meter meterdomain.Meter
	err := db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		First(&meter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, namespace, key string) (*meterdomain.Meter, error) {
	var meter meterdomain.Meter
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		First(&meter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *repo) FindByEventType(ctx context.Context, db *gorm.DB, namespace, eventType string) (*meterdomain.Meter, error) {
	var meter meterdomain.Meter
	err := db.WithContext(ctx).
		Where("namespace = ? AND event_type = ?", namespace, eventType).
		First(&meter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, namespace string, filter meterdomain.ListRequest, page pagination.Pagination) ([]*meterdomain.Meter, error) {
	var meters []*meterdomain.Meter
	stmt := db.WithContext(ctx).
		Model(&meterdomain.Meter{}).
		Where("namespace = ?", namespace)

	if filter.Key != "" {
		stmt = stmt.Where("key = ?", filter.Key)
	}
	if filter.EventType != "" {
		stmt = stmt.Where("event_type = ?", filter.EventType)
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
		// One extra row so the service can tell whether more pages exist.
		stmt = stmt.Limit(page.PageSize + 1)
	}

	if err := stmt.Find(&meters).Error; err != nil {
		return nil, err
	}
	return meters, nil
}
