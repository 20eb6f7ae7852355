package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AggregateFunc string

const (
	AggregateSum   AggregateFunc = "sum"
	AggregateCount AggregateFunc = "count"
)

// Filter narrows the event rows an aggregation runs over. Timestamp bounds
// are inclusive on both ends.
type Filter struct {
	Namespace string
	MeterID   *snowflake.ID
	SubjectID *snowflake.ID
	From      time.Time
	To        time.Time
}

type Bucket struct {
	WindowStart time.Time
	Value       float64
}

type SubjectTotal struct {
	SubjectID snowflake.ID
	Value     float64
}

type Repository interface {
	AggregateBuckets(ctx context.Context, db *gorm.DB, filter Filter, window WindowSize, fn AggregateFunc) ([]Bucket, error)
	Total(ctx context.Context, db *gorm.DB, filter Filter, fn AggregateFunc) (float64, error)
	SubjectTotals(ctx context.Context, db *gorm.DB, filter Filter, fn AggregateFunc, limit int) ([]SubjectTotal, error)
	UpsertAggregate(ctx context.Context, db *gorm.DB, agg *UsageAggregate) error
}
