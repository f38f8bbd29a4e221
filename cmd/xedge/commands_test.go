package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xedge/internal/edgeconf"
	"github.com/omeyang/xedge/pkg/edge/xgovern"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xrespcache"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xedge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func noDotEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

const testConfig = `
origin: http://127.0.0.1:3000
store:
  memory: true
security:
  allowed_origins: [https://app.example]
policies:
  quota:
    - route_prefix: /api/
      limit: 5
      window: 1m
  cache:
    - route_prefix: /api/public/
      ttl: 1m
      cacheable: true
`

func TestCheckConfig_ValidFile_PrintsPolicies(t *testing.T) {
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	app := createApp()
	app.Writer = &out
	err := app.Run(context.Background(), []string{"xedge", "check-config", "--config", path, "--dotenv", noDotEnv(t)})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "/api/public/")
	assert.Contains(t, out.String(), "/api/")
}

func TestRun_InvalidConfig_ExitCode2(t *testing.T) {
	path := writeConfig(t, "origin: not-a-url\nstore:\n  memory: true\n")

	code := run([]string{"xedge", "check-config", "--config", path, "--dotenv", noDotEnv(t)})

	assert.Equal(t, 2, code)
}

func TestRun_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "origin: not-a-url\n")

	code := run([]string{"xedge", "check-config", "--config", path, "--dotenv", noDotEnv(t),
		"--origin", "http://127.0.0.1:3000", "--memory-store"})

	assert.Equal(t, 0, code)
}

func TestBuildEdge_MemoryStore_ProxiesThroughStages(t *testing.T) {
	var originCalls atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originCalls.Add(1)
		assert.True(t, strings.HasPrefix(r.Header.Get("X-Forwarded-For"), "203.0.113.7"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(origin.Close)

	src, err := edgeconf.Source(writeConfig(t, testConfig))
	require.NoError(t, err)
	cfg, err := edgeconf.Decode(src)
	require.NoError(t, err)
	cfg.Origin = origin.URL

	e, err := buildEdge(context.Background(), cfg, xlog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	assert.Equal(t, []string{xgovern.StageAbuse, xgovern.StageQuota, xgovern.StageSecurity}, e.governor.Stages())

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.Header.Set("User-Agent", "cli-test")
		rec := httptest.NewRecorder()
		e.server.Handler.ServeHTTP(rec, req)
		return rec
	}

	first := do("/api/public/items?b=2&a=1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, xrespcache.CacheMiss, first.Header().Get(xrespcache.HeaderCache))
	assert.NotEmpty(t, first.Header().Get(xgovern.HeaderRequestID))
	assert.Equal(t, "5", first.Header().Get(xquota.HeaderLimit))

	second := do("/api/public/items?a=1&b=2")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, xrespcache.CacheHit, second.Header().Get(xrespcache.HeaderCache))
	assert.JSONEq(t, `{"path":"/api/public/items"}`, second.Body.String())
	assert.Equal(t, int32(1), originCalls.Load())

	for range 3 {
		do("/api/private")
	}
	denied := do("/api/private")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, xgovern.StageQuota, denied.Header().Get(xgovern.HeaderStage))
}

func TestOriginProxy_Unreachable_Returns502(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	h, err := newOriginProxy(addr, testEnvelopeHolder(t), xlog.Discard())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func testEnvelopeHolder(t *testing.T) *xsecure.Holder {
	t.Helper()
	env, err := xsecure.New(nil)
	require.NoError(t, err)
	return xsecure.NewHolder(env)
}

func TestOriginProxy_OriginSecurityHeaders_Stripped(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "default-src *")
		w.Header().Set("X-Origin", "kept")
		_, _ = io.WriteString(w, "ok")
	}))
	defer origin.Close()

	holder := testEnvelopeHolder(t)
	h, err := newOriginProxy(origin.URL, holder, xlog.Discard())
	require.NoError(t, err)

	// 与 governor 的顺序一致：先写边缘安全头，再转发
	rec := httptest.NewRecorder()
	holder.Load().Apply(rec)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"DENY"}, rec.Header().Values("X-Frame-Options"))
	assert.Equal(t, []string{xsecure.DefaultHeaders["Content-Security-Policy"]},
		rec.Header().Values("Content-Security-Policy"))
	assert.Equal(t, "kept", rec.Header().Get("X-Origin"))
}
