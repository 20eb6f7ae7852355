package repository

import (
	"context"

	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() eventdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *eventdomain.Event) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, namespace string, filter eventdomain.ListFilter) ([]*eventdomain.Event, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("namespace = ?", namespace)

	if filter.MeterID != nil {
		stmt = stmt.Where("meter_id = ?", *filter.MeterID)
	}
	if filter.SubjectID != nil {
		stmt = stmt.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.From != nil {
		stmt = stmt.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("timestamp <= ?", *filter.To)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	stmt = stmt.Order("timestamp desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		stmt = stmt.Offset(filter.Offset)
	}

	var events []*eventdomain.Event
	if err := stmt.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
