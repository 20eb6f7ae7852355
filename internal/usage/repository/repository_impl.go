package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	"github.com/railzwaylabs/metering/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Provide() domain.Repository {
	return &repo{}
}

type repo struct{}

const bucketLayout = "2006-01-02 15:04:05"

// bucketExpr renders the window-truncation expression for the connected
// dialect. Both render to the same "YYYY-MM-DD HH:MM:SS" string so scanning
// stays uniform. Events are stored in UTC, so the truncation is UTC-aligned.
func bucketExpr(dialect string, window domain.WindowSize) (string, error) {
	switch dialect {
	case "postgres":
		var unit string
		switch window {
		case domain.WindowSecond:
			unit = "second"
		case domain.WindowMinute:
			unit = "minute"
		case domain.WindowHour:
			unit = "hour"
		case domain.WindowDay:
			unit = "day"
		case domain.WindowMonth:
			unit = "month"
		default:
			return "", domain.ErrInvalidWindowSize
		}
		return fmt.Sprintf("to_char(date_trunc('%s', timestamp AT TIME ZONE 'UTC'), 'YYYY-MM-DD HH24:MI:SS')", unit), nil
	case "sqlite":
		var layout string
		switch window {
		case domain.WindowSecond:
			layout = "%Y-%m-%d %H:%M:%S"
		case domain.WindowMinute:
			layout = "%Y-%m-%d %H:%M:00"
		case domain.WindowHour:
			layout = "%Y-%m-%d %H:00:00"
		case domain.WindowDay:
			layout = "%Y-%m-%d 00:00:00"
		case domain.WindowMonth:
			layout = "%Y-%m-01 00:00:00"
		default:
			return "", domain.ErrInvalidWindowSize
		}
		return fmt.Sprintf("strftime('%s', timestamp)", layout), nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

func aggregateExpr(fn domain.AggregateFunc) string {
	if fn == domain.AggregateCount {
		return "COUNT(*)"
	}
	return "COALESCE(SUM(value), 0)"
}

func applyFilter(q *gorm.DB, filter domain.Filter) *gorm.DB {
	q = q.Where("namespace = ?", filter.Namespace).
		Where("timestamp >= ? AND timestamp <= ?", filter.From, filter.To)
	if filter.MeterID != nil {
		q = q.Where("meter_id = ?", *filter.MeterID)
	}
	if filter.SubjectID != nil {
		q = q.Where("subject_id = ?", *filter.SubjectID)
	}
	return q
}

func (r *repo) AggregateBuckets(ctx context.Context, db *gorm.DB, filter domain.Filter, window domain.WindowSize, fn domain.AggregateFunc) ([]domain.Bucket, error) {
	expr, err := bucketExpr(db.Dialector.Name(), window)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		WindowStart string
		Value       float64
	}
	q := applyFilter(db.WithContext(ctx).Model(&eventdomain.Event{}), filter)
	err = q.Select(expr + " AS window_start, " + aggregateExpr(fn) + " AS value").
		Group("window_start").
		Order("window_start asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]domain.Bucket, 0, len(rows))
	for _, row := range rows {
		start, err := time.ParseInLocation(bucketLayout, row.WindowStart, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse bucket %q: %w", row.WindowStart, err)
		}
		buckets = append(buckets, domain.Bucket{WindowStart: start, Value: row.Value})
	}
	return buckets, nil
}

func (r *repo) Total(ctx context.Context, db *gorm.DB, filter domain.Filter, fn domain.AggregateFunc) (float64, error) {
	var total float64
	q := applyFilter(db.WithContext(ctx).Model(&eventdomain.Event{}), filter)
	err := q.Select(aggregateExpr(fn)).Scan(&total).Error
	return total, err
}

func (r *repo) SubjectTotals(ctx context.Context, db *gorm.DB, filter domain.Filter, fn domain.AggregateFunc, limit int) ([]domain.SubjectTotal, error) {
	var rows []struct {
		SubjectID int64
		Value     float64
	}
	q := applyFilter(db.WithContext(ctx).Model(&eventdomain.Event{}), filter)
	err := q.Select("subject_id, " + aggregateExpr(fn) + " AS value").
		Group("subject_id").
		Order("value desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]domain.SubjectTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.SubjectTotal{
			SubjectID: snowflake.ID(row.SubjectID),
			Value:     row.Value,
		})
	}
	return totals, nil
}

func (r *repo) UpsertAggregate(ctx context.Context, db *gorm.DB, agg *domain.UsageAggregate) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "namespace"},
				{Name: "meter_id"},
				{Name: "subject_id"},
				{Name: "period_start"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"period_end", "agg_type", "value", "updated_at"}),
		}).
		Create(agg).Error
}
