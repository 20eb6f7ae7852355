package service

import (
	"testing"

	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/stretchr/testify/assert"
)

func TestExtractValue_Priority(t *testing.T) {
	amount := "amount"
	five := 5.0

	tests := []struct {
		name       string
		meter      meterdomain.Meter
		value      *float64
		properties map[string]any
		want       float64
	}{
		{
			name:       "configured property wins over explicit value",
			meter:      meterdomain.Meter{Aggregation: meterdomain.AggregationSum, ValueProperty: &amount},
			value:      &five,
			properties: map[string]any{"amount": 10.0},
			want:       10,
		},
		{
			name:       "numeric string property is parsed",
			meter:      meterdomain.Meter{Aggregation: meterdomain.AggregationSum, ValueProperty: &amount},
			properties: map[string]any{"amount": "2.5"},
			want:       2.5,
		},
		{
			name:       "non-numeric property falls through to explicit value",
			meter:      meterdomain.Meter{Aggregation: meterdomain.AggregationSum, ValueProperty: &amount},
			value:      &five,
			properties: map[string]any{"amount": "not-a-number"},
			want:       5,
		},
		{
			name:  "explicit value used when no property configured",
			meter: meterdomain.Meter{Aggregation: meterdomain.AggregationSum},
			value: &five,
			want:  5,
		},
		{
			name:  "count meter defaults to one",
			meter: meterdomain.Meter{Aggregation: meterdomain.AggregationCount},
			want:  1,
		},
		{
			name:  "sum meter defaults to zero",
			meter: meterdomain.Meter{Aggregation: meterdomain.AggregationSum},
			want:  0,
		},
		{
			name:       "missing property key falls through",
			meter:      meterdomain.Meter{Aggregation: meterdomain.AggregationCount, ValueProperty: &amount},
			properties: map[string]any{"other": 3.0},
			want:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractValue(&tt.meter, tt.value, tt.properties)
			assert.Equal(t, tt.want, got)
		})
	}
}
