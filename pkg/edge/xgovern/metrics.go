package xgovern

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称
const (
	MetricDecisionsTotal    = "xedge.decisions.total"
	MetricDegradedTotal     = "xedge.degraded.total"
	MetricCacheLookupsTotal = "xedge.cache.lookups.total"
	MetricStageDuration     = "xedge.stage.duration"
)

// Metrics 治理指标。nil 值的方法为空操作。
type Metrics struct {
	decisions     metric.Int64Counter
	degraded      metric.Int64Counter
	cacheLookups  metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// NewMetrics 创建指标。provider 为 nil 时返回 nil（不收集指标）。
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter("github.com/omeyang/xedge/xgovern")

	decisions, err := meter.Int64Counter(MetricDecisionsTotal,
		metric.WithDescription("治理阶段裁决数"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	degraded, err := meter.Int64Counter(MetricDegradedTotal,
		metric.WithDescription("依赖不可用导致的降级放行数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter(MetricCacheLookupsTotal,
		metric.WithDescription("响应缓存查询数"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricStageDuration,
		metric.WithDescription("治理阶段耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5,
		),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		decisions:     decisions,
		degraded:      degraded,
		cacheLookups:  lookups,
		stageDuration: duration,
	}, nil
}

func (m *Metrics) recordDecision(ctx context.Context, stage string, v Verdict, d time.Duration) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	outcome := "allow"
	if !v.Allow {
		outcome = "deny"
	}
	stageAttr := attribute.String("stage", stage)
	m.decisions.Add(ctx, 1, metric.WithAttributes(stageAttr, attribute.String("outcome", outcome)))
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(stageAttr))
	if v.Degraded {
		m.degraded.Add(ctx, 1, metric.WithAttributes(stageAttr))
	}
}

func (m *Metrics) recordCache(ctx context.Context, hit, degraded bool) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	if degraded {
		m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", StageCache)))
	}
}
