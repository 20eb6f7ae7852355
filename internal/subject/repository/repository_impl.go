package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subjectdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *subjectdomain.Subject) error {
	return db.WithContext(ctx).Create(s).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *subjectdomain.Subject) error {
	return db.WithContext(ctx).Save(s).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		Delete(&subjectdomain.Subject{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, namespace string, id snowflake.ID) (*subjectdomain.Subject, error) {
	var subject subjectdomain.Subject
	err := db.WithContext(ctx).
		Where("namespace = ? AND id = ?", namespace, id).
		First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, namespace, key string) (*subjectdomain.Subject, error) {
	var subject subjectdomain.Subject
	err := db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, namespace string, filter subjectdomain.ListRequest, page pagination.Pagination) ([]*subjectdomain.Subject, error) {
	var subjects []*subjectdomain.Subject
	stmt := db.WithContext(ctx).
		Model(&subjectdomain.Subject{}).
		Where("namespace = ?", namespace)

	if filter.Key != "" {
		stmt = stmt.Where("key = ?", filter.Key)
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

	if err := stmt.Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}
