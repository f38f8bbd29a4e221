package xpolicy

import (
	"net/http"
	"sync/atomic"
)

// Resolver 策略解析器，构建后只读，并发安全
type Resolver struct {
	quota *trie[QuotaPolicy]
	cache *trie[CachePolicy]
	table Table
}

// New 校验策略表并构建解析器
func New(table Table) (*Resolver, error) {
	r := &Resolver{
		quota: newTrie[QuotaPolicy](),
		cache: newTrie[CachePolicy](),
	}
	for _, p := range table.Quota {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if r.quota.insert(p.RoutePrefix, p) {
			r.table.Quota = append(r.table.Quota, p)
		}
	}
	if _, ok := r.quota.longest("/"); !ok {
		r.quota.insert(DefaultQuota.RoutePrefix, DefaultQuota)
		r.table.Quota = append(r.table.Quota, DefaultQuota)
	}
	for _, p := range table.Cache {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if r.cache.insert(p.RoutePrefix, p) {
			r.table.Cache = append(r.table.Cache, p)
		}
	}
	return r, nil
}

// MustNew 同 New，校验失败时 panic，用于测试和静态策略表
func MustNew(table Table) *Resolver {
	r, err := New(table)
	if err != nil {
		panic(err)
	}
	return r
}

// Quota 返回 path 的配额策略，总有结果
func (r *Resolver) Quota(path string) QuotaPolicy {
	p, ok := r.quota.longest(path)
	if !ok {
		// 不以 / 开头的路径（如 "*"）落到兜底策略
		p, _ = r.quota.longest("/")
	}
	return p
}

// Cache 返回可缓存请求的缓存策略
//
// 仅 GET 且最长匹配策略 Cacheable 时 ok 为 true。
func (r *Resolver) Cache(method, path string) (CachePolicy, bool) {
	if method != http.MethodGet {
		return CachePolicy{}, false
	}
	p, ok := r.cache.longest(path)
	if !ok || !p.Cacheable {
		return CachePolicy{}, false
	}
	return p, true
}

// Table 返回去重后的生效策略表（含兜底策略）
func (r *Resolver) Table() Table {
	return Table{
		Quota: append([]QuotaPolicy(nil), r.table.Quota...),
		Cache: append([]CachePolicy(nil), r.table.Cache...),
	}
}

// Holder 可热替换的解析器容器
//
// 已开始的请求继续使用旧解析器，新请求使用新解析器。
type Holder struct {
	p atomic.Pointer[Resolver]
}

// NewHolder 创建容器
func NewHolder(r *Resolver) *Holder {
	h := &Holder{}
	h.p.Store(r)
	return h
}

// Load 返回当前解析器
func (h *Holder) Load() *Resolver {
	return h.p.Load()
}

// Store 替换解析器，nil 被忽略
func (h *Holder) Store(r *Resolver) {
	if r != nil {
		h.p.Store(r)
	}
}
