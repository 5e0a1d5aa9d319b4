// Package observability records gate outcomes as OpenTelemetry metrics.
package observability

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

const meterName = "intent-gate"

// Provider owns an in-process meter provider whose readings can be pulled
// with Snapshot.
type Provider struct {
	mp     *sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// NewProvider builds a meter provider and installs it globally.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return &Provider{mp: mp, reader: reader}
}

func (p *Provider) Meter() metric.Meter {
	if p == nil || p.mp == nil {
		return otel.Meter(meterName)
	}
	return p.mp.Meter(meterName)
}

func (p *Provider) Shutdown(ctx context.Context) error { return p.mp.Shutdown(ctx) }

// Point is one counter series.
type Point struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	Value      int64             `json:"value"`
}

// Snapshot collects the current value of every int64 counter.
func (p *Provider) Snapshot(ctx context.Context) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	var out []Point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				attrs := map[string]string{}
				for it := dp.Attributes.Iter(); it.Next(); {
					kv := it.Attribute()
					attrs[string(kv.Key)] = kv.Value.Emit()
				}
				out = append(out, Point{Name: m.Name, Attributes: attrs, Value: dp.Value})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes["outcome"] < out[j].Attributes["outcome"]
	})
	return out, nil
}

// GateMetrics counts guarded calls by action and outcome.
type GateMetrics struct {
	calls    metric.Int64Counter
	rejected metric.Int64Counter
}

func NewGateMetrics(m metric.Meter) (*GateMetrics, error) {
	calls, err := m.Int64Counter("intent_gate.calls.total",
		metric.WithDescription("Guarded calls by terminal outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := m.Int64Counter("intent_gate.rejections.total",
		metric.WithDescription("Guarded calls that did not execute successfully"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	return &GateMetrics{calls: calls, rejected: rejected}, nil
}

func (g *GateMetrics) RecordOutcome(ctx context.Context, action string, outcome models.Outcome) {
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", string(outcome)),
	)
	g.calls.Add(ctx, 1, attrs)
	if !outcome.Approved() {
		g.rejected.Add(ctx, 1, attrs)
	}
}
