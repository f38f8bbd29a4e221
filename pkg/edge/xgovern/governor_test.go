package xgovern

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xedge/pkg/edge/xabuse"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xrespcache"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/storage/xstore"
)

var testTable = xpolicy.Table{
	Quota: []xpolicy.QuotaPolicy{
		{RoutePrefix: "/api/", Limit: 5, Window: time.Minute},
		{RoutePrefix: "/", Limit: 100, Window: time.Minute},
	},
	Cache: []xpolicy.CachePolicy{
		{RoutePrefix: "/api/public/", TTL: time.Minute, Cacheable: true},
	},
}

type fixture struct {
	mr      *miniredis.Miniredis
	logs    *bytes.Buffer
	reader  *sdkmetric.ManualReader
	policy  *xpolicy.Holder
	origin  *atomic.Int64
	handler http.Handler
}

func newFixture(t *testing.T, extra ...Option) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store, err := xstore.NewRedis(client, xstore.WithOpTimeout(200*time.Millisecond))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger, _, err := xlog.New().SetOutput(logs).SetFormat("json").SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := NewMetrics(mp)
	require.NoError(t, err)

	guard, err := xabuse.New(store, xabuse.WithBurstThreshold(20), xabuse.WithLogger(logger))
	require.NoError(t, err)
	enforcer, err := xquota.New(store, xquota.WithLogger(logger))
	require.NoError(t, err)
	envelope, err := xsecure.New([]string{"https://app.example"})
	require.NoError(t, err)
	cache, err := xrespcache.New(store, xrespcache.WithLogger(logger))
	require.NoError(t, err)

	holder := xpolicy.NewHolder(xpolicy.MustNew(testTable))
	opts := []Option{
		WithAbuseGuard(guard),
		WithQuota(enforcer),
		WithEnvelope(envelope),
		WithCache(cache),
		WithLogger(logger),
		WithMetrics(metrics),
	}
	g, err := New(holder, append(opts, extra...)...)
	require.NoError(t, err)

	var calls atomic.Int64
	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "origin:"+r.URL.Path)
	})

	return &fixture{
		mr:      mr,
		logs:    logs,
		reader:  reader,
		policy:  holder,
		origin:  &calls,
		handler: g.Handler(origin),
	}
}

func (f *fixture) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.Header.Set("User-Agent", "test-agent")
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func (f *fixture) logLines(t *testing.T) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(f.logs.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines = append(lines, rec)
	}
	return lines
}

func (f *fixture) counter(t *testing.T, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	want := attribute.NewSet(attrs...)
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if matches(dp.Attributes, want) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func matches(got attribute.Set, want attribute.Set) bool {
	for _, kv := range want.ToSlice() {
		v, ok := got.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}

func TestGovernor_AllStagesPass_ReachesOrigin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/artists", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "origin:/api/artists", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "5", w.Header().Get(xquota.HeaderLimit))
	assert.Equal(t, "4", w.Header().Get(xquota.HeaderRemaining))
	assert.Empty(t, w.Header().Get(xrespcache.HeaderCache))

	assert.Equal(t, int64(1), f.counter(t, MetricDecisionsTotal,
		attribute.String("stage", StageQuota), attribute.String("outcome", "allow")))
}

func TestGovernor_RequestID_Preserved(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/", map[string]string{HeaderRequestID: "req-123"})
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestGovernor_QuotaExceeded_Returns429(t *testing.T) {
	f := newFixture(t)

	for range 5 {
		require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/tracks", nil).Code)
	}
	w := f.do(http.MethodGet, "/api/tracks", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, StageQuota, w.Header().Get(HeaderStage))
	assert.Equal(t, "0", w.Header().Get(xquota.HeaderRemaining))
	assert.NotEmpty(t, w.Header().Get(xquota.HeaderRetryAfter))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "quota exceeded", body.Error)
	assert.Equal(t, int64(5), f.origin.Load())

	// 非 /api/ 路径使用 catch-all 策略，不受影响
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/home", nil).Code)
}

func TestGovernor_DisallowedOrigin_Returns403(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/public/artists", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, StageSecurity, w.Header().Get(HeaderStage))
	assert.Equal(t, int64(0), f.origin.Load())

	w = f.do(http.MethodGet, "/api/public/artists", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGovernor_Preflight_Returns204(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodOptions, "/api/tracks", map[string]string{
		"Origin":                        "https://app.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, int64(0), f.origin.Load())
}

func TestGovernor_AbuseBurst_Returns403(t *testing.T) {
	f := newFixture(t)

	// catch-all 配额 100，突发阈值 20
	for range 20 {
		require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/home", nil).Code)
	}
	w := f.do(http.MethodGet, "/home", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, StageAbuse, w.Header().Get(HeaderStage))

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, xabuse.ReasonBurst, body.Error)
}

func TestGovernor_Cache_HitSkipsOrigin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/public/artists?a=1&b=2", nil)
	assert.Equal(t, xrespcache.CacheMiss, w.Header().Get(xrespcache.HeaderCache))
	w = f.do(http.MethodGet, "/api/public/artists?b=2&a=1", nil)
	assert.Equal(t, xrespcache.CacheHit, w.Header().Get(xrespcache.HeaderCache))
	assert.Equal(t, "origin:/api/public/artists", w.Body.String())
	assert.Equal(t, int64(1), f.origin.Load())

	assert.Equal(t, int64(1), f.counter(t, MetricCacheLookupsTotal, attribute.String("result", "hit")))
	assert.Equal(t, int64(1), f.counter(t, MetricCacheLookupsTotal, attribute.String("result", "miss")))
}

func TestGovernor_Post_NeverCached(t *testing.T) {
	f := newFixture(t)
	for range 2 {
		w := f.do(http.MethodPost, "/api/public/artists", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(xrespcache.HeaderCache))
	}
	assert.Equal(t, int64(2), f.origin.Load())
}

func TestGovernor_StoreDown_FailsOpen(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	for range 10 {
		w := f.do(http.MethodGet, "/api/public/artists", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xrespcache.CacheMiss, w.Header().Get(xrespcache.HeaderCache))
	}
	assert.Equal(t, int64(10), f.origin.Load())

	degradedStages := map[string]bool{}
	for _, line := range f.logLines(t) {
		if line[xlog.KeyDegraded] == true {
			stage, _ := line[xlog.KeyStage].(string)
			degradedStages[stage] = true
		}
	}
	for _, stage := range []string{StageAbuse, StageQuota, StageCache} {
		assert.True(t, degradedStages[stage], stage)
	}
	assert.Equal(t, int64(10), f.counter(t, MetricDegradedTotal, attribute.String("stage", StageAbuse)))
	assert.Equal(t, int64(10), f.counter(t, MetricDegradedTotal, attribute.String("stage", StageQuota)))
	assert.Equal(t, int64(10), f.counter(t, MetricDegradedTotal, attribute.String("stage", StageCache)))
}

func TestGovernor_PolicyHotSwap_AppliesToNextRequest(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, "5", f.do(http.MethodGet, "/api/x", nil).Header().Get(xquota.HeaderLimit))

	f.policy.Store(xpolicy.MustNew(xpolicy.Table{
		Quota: []xpolicy.QuotaPolicy{{RoutePrefix: "/api/", Limit: 50, Window: time.Minute}},
	}))
	assert.Equal(t, "50", f.do(http.MethodGet, "/api/x", nil).Header().Get(xquota.HeaderLimit))
}

func TestGovernor_Authenticator_MapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"allowed", nil, http.StatusOK},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unavailable", io.ErrUnexpectedEOF, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, WithAuthenticator(AuthenticatorFunc(func(context.Context, *http.Request) error {
				return tt.err
			})))
			w := f.do(http.MethodGet, "/api/me", nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.err != nil {
				assert.Equal(t, StageAuth, w.Header().Get(HeaderStage))
			}
		})
	}
}

func TestGovernor_StageOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return StageFunc{StageName: name, Fn: func(context.Context, *Exchange) Verdict {
			order = append(order, name)
			return Allow()
		}}
	}
	f := newFixture(t,
		WithAuthenticator(AuthenticatorFunc(func(context.Context, *http.Request) error {
			order = append(order, StageAuth)
			return nil
		})),
		WithStages(stage("custom")),
	)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/", nil).Code)
	assert.Equal(t, []string{StageAuth, "custom"}, order)
}

func TestNew_NilPolicies_ReturnsError(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilPolicies)

	g, err := New(xpolicy.NewHolder(xpolicy.MustNew(xpolicy.Table{})))
	require.NoError(t, err)
	assert.Empty(t, g.Stages())
}
