package xrespcache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/storage/xstore"
)

// 缓存状态响应头
const (
	HeaderCache = "X-Cache"
	CacheHit    = "HIT"
	CacheMiss   = "MISS"
)

// Lookup 一次 Serve 的缓存结果
type Lookup struct {
	Hit bool

	// Coalesced 本次响应与其他并发未命中共享了同一次回源
	Coalesced bool

	// Degraded 读缓存时存储不可用，按未命中处理
	Degraded bool
}

// Cache 响应缓存，并发安全
type Cache struct {
	store xstore.Store
	group singleflight.Group
	opts  *options
}

// New 创建 Cache
func New(store xstore.Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Cache{store: store, opts: o}, nil
}

// fillResult 一次回源的完整响应。header 只给发起回源的请求，
// 合并进来的其他请求只能看到白名单内的 shared。
type fillResult struct {
	status int
	header http.Header
	shared http.Header
	body   []byte
}

// Serve 从缓存响应 r，未命中时调用 origin 并按 policy.TTL 写入缓存。
// 调用方负责判定 r 是否可缓存。
func (c *Cache) Serve(w http.ResponseWriter, r *http.Request, policy xpolicy.CachePolicy, origin http.Handler) Lookup {
	ctx := r.Context()
	key := Key(r.URL.Path, r.URL.Query())

	rec, degraded := c.lookup(ctx, key)
	if rec != nil {
		c.writeHit(w, rec, policy.TTL)
		return Lookup{Hit: true}
	}

	if !c.opts.coalescing {
		c.writeMiss(w, c.fill(ctx, r, key, policy, origin), policy.TTL)
		return Lookup{Degraded: degraded}
	}

	res, shared, err := c.fillShared(r, key, policy, origin)
	if err != nil {
		// 调用方已离开，回源仍在后台为其他等待者继续
		c.opts.logger.Debug(ctx, "cache fill abandoned", xlog.Err(err))
		return Lookup{Degraded: degraded}
	}
	c.writeMiss(w, res, policy.TTL)
	return Lookup{Coalesced: shared, Degraded: degraded}
}

func (c *Cache) lookup(ctx context.Context, key string) (*Record, bool) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, xstore.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.opts.logger.Warn(ctx, "cache lookup failed, treating as miss",
			xlog.Stage("cache"), xlog.Degraded(), xlog.Err(err))
		return nil, true
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.opts.logger.Warn(ctx, "cache record corrupt, treating as miss",
			xlog.Stage("cache"), xlog.Err(err))
		return nil, false
	}
	return &rec, false
}

func (c *Cache) fillShared(r *http.Request, key string, policy xpolicy.CachePolicy, origin http.Handler) (*fillResult, bool, error) {
	ctx := r.Context()
	leader := false
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.fillTimeout)
		defer cancel()
		return c.fill(fillCtx, r.WithContext(fillCtx), key, policy, origin), nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		f, ok := res.Val.(*fillResult)
		if !ok {
			return nil, false, errUnexpectedResult
		}
		if !leader {
			f = &fillResult{status: f.status, header: f.shared, shared: f.shared, body: f.body}
		}
		return f, res.Shared, nil
	}
}

// fill 回源并在响应可缓存时写入存储
func (c *Cache) fill(ctx context.Context, r *http.Request, key string, policy xpolicy.CachePolicy, origin http.Handler) *fillResult {
	rec := newRecorder()
	origin.ServeHTTP(rec, r)

	res := &fillResult{
		status: rec.statusCode(),
		header: rec.header,
		shared: filterHeader(rec.header, c.opts.whitelist),
		body:   rec.body.Bytes(),
	}
	if !isSuccess(res.status) || ctx.Err() != nil {
		return res
	}

	data, err := json.Marshal(Record{
		Status:   res.status,
		Header:   res.shared,
		Body:     res.body,
		StoredAt: c.opts.now(),
	})
	if err == nil {
		err = c.store.SetWithTTL(ctx, key, data, policy.TTL)
	}
	if err != nil {
		c.opts.logger.Warn(ctx, "cache write failed",
			xlog.Stage("cache"), xlog.Err(err))
		if c.opts.onStoreErr != nil {
			c.opts.onStoreErr(ctx, key, err)
		}
	}
	return res
}

func (c *Cache) writeHit(w http.ResponseWriter, rec *Record, ttl time.Duration) {
	h := w.Header()
	for k, vs := range rec.Header {
		h[k] = append([]string(nil), vs...)
	}
	h.Set(HeaderCache, CacheHit)
	h.Set("Cache-Control", cacheControl(ttl))
	if !rec.StoredAt.IsZero() {
		age := max(int64(c.opts.now().Sub(rec.StoredAt).Seconds()), 0)
		h.Set("Age", strconv.FormatInt(age, 10))
	}
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func (c *Cache) writeMiss(w http.ResponseWriter, res *fillResult, ttl time.Duration) {
	h := w.Header()
	for k, vs := range res.header {
		h[k] = append([]string(nil), vs...)
	}
	h.Set(HeaderCache, CacheMiss)
	if isSuccess(res.status) {
		h.Set("Cache-Control", cacheControl(ttl))
	}
	w.WriteHeader(res.status)
	_, _ = w.Write(res.body)
}

func cacheControl(ttl time.Duration) string {
	sec := int64(ttl.Seconds())
	return "public, s-maxage=" + strconv.FormatInt(sec, 10) +
		", stale-while-revalidate=" + strconv.FormatInt(2*sec, 10)
}
