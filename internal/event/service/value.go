package service

import (
	"encoding/json"
	"strconv"

	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
)

// extractValue derives the numeric measurement for one event. The priority
// order is a contract: configured value property, then the explicit payload
// value, then an aggregation-aware default (COUNT meters count one unit per
// event, everything else contributes zero).
func extractValue(meter *meterdomain.Meter, value *float64, properties map[string]any) float64 {
	if meter.ValueProperty != nil && *meter.ValueProperty != "" {
		if raw, ok := properties[*meter.ValueProperty]; ok {
			if v, ok := coerceNumber(raw); ok {
				return v
			}
		}
	}

	if value != nil {
		return *value
	}

	if meter.Aggregation == meterdomain.AggregationCount {
		return 1
	}

	return 0
}

func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
