// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics records the internal counters of the reporter and exports
// them through OTel metrics.
package metrics // import "github.com/wpprofiler/hookreporter/metrics"

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/wpprofiler/hookreporter/vc"
)

var (
	//go:embed metrics.json
	metricsJSON []byte

	metricTypes map[MetricID]MetricType

	// values holds the running totals (counters) or last values (gauges).
	values [IDMax]atomic.Int64

	// OTel metric instrumentation
	meter = otel.Meter("github.com/wpprofiler/hookreporter",
		metric.WithInstrumentationVersion(vc.Version()))
	counters = map[MetricID]metric.Int64Counter{}
	gauges   = map[MetricID]metric.Int64Gauge{}
)

func init() {
	defs := GetDefinitions()
	metricTypes = make(map[MetricID]MetricType, len(defs))
	for _, md := range defs {
		metricTypes[md.ID] = md.Type
		switch typ := md.Type; typ {
		case MetricTypeCounter:
			counter, err := meter.Int64Counter(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Counter: %v", err)
				continue
			}
			counters[md.ID] = counter
		case MetricTypeGauge:
			gauge, err := meter.Int64Gauge(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Gauge: %v", err)
				continue
			}
			gauges[md.ID] = gauge
		default:
			panic(fmt.Sprintf("Unknown metric type: %v", typ))
		}
	}
}

// Add records value for id. Counters accumulate, gauges keep the last value.
func Add(id MetricID, value MetricValue) {
	if id <= IDInvalid || id >= IDMax {
		log.Errorf("Metric value %d out of range [%d,%d] - needs investigation",
			id, IDInvalid+1, IDMax-1)
		return
	}

	ctx := context.Background()
	switch metricTypes[id] {
	case MetricTypeCounter:
		if value == 0 {
			return
		}
		values[id].Add(int64(value))
		if counter, ok := counters[id]; ok {
			counter.Add(ctx, int64(value))
		}
	case MetricTypeGauge:
		values[id].Store(int64(value))
		if gauge, ok := gauges[id]; ok {
			gauge.Record(ctx, int64(value))
		}
	default:
		log.Warnf("Invalid metric id %d, skipping", id)
	}
}

// Get returns the running total of a counter or the last value of a gauge.
func Get(id MetricID) MetricValue {
	if id <= IDInvalid || id >= IDMax {
		return 0
	}
	return MetricValue(values[id].Load())
}

// Summary returns the current value of every defined metric, keyed by name.
func Summary() map[string]MetricValue {
	summary := make(map[string]MetricValue, len(metricTypes))
	for _, md := range GetDefinitions() {
		summary[md.Name] = Get(md.ID)
	}
	return summary
}

// GetDefinitions returns the metric definitions from the embedded metrics.json file.
func GetDefinitions() []MetricDefinition {
	var defs []MetricDefinition

	dec := json.NewDecoder(bytes.NewReader(metricsJSON))
	dec.DisallowUnknownFields()

	err := dec.Decode(&defs)
	if err != nil {
		panic(fmt.Sprintf("extracting definitions from metrics.json: %v", err))
	}
	return defs
}
