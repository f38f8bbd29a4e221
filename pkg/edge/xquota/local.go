package xquota

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/omeyang/xedge/pkg/edge/xpolicy"
)

// localLimiters 进程内令牌桶集合，按 LRU 淘汰不活跃的客户端
type localLimiters struct {
	buckets   *lru.Cache[string, *rate.Limiter]
	instances int64
}

func newLocalLimiters(capacity, instances int) (*localLimiters, error) {
	c, err := lru.New[string, *rate.Limiter](capacity)
	if err != nil {
		return nil, err
	}
	return &localLimiters{buckets: c, instances: int64(instances)}, nil
}

// share 单实例分到的配额，至少为 1
func (l *localLimiters) share(limit int64) int64 {
	return max(limit/l.instances, 1)
}

// get 返回 key 的令牌桶。策略热更新后复用的桶按新的速率和容量调整，保留已有令牌。
func (l *localLimiters) get(key string, limit int64, window time.Duration, now time.Time) *rate.Limiter {
	every := rate.Every(window / time.Duration(limit))
	if lim, ok := l.buckets.Get(key); ok {
		if lim.Limit() != every {
			lim.SetLimitAt(now, every)
		}
		if lim.Burst() != int(limit) {
			lim.SetBurstAt(now, int(limit))
		}
		return lim
	}
	lim := rate.NewLimiter(every, int(limit))
	if prev, found, _ := l.buckets.PeekOrAdd(key, lim); found {
		return prev
	}
	return lim
}

func (l *localLimiters) allow(key string, p xpolicy.QuotaPolicy, now time.Time) *Result {
	limit := l.share(p.Limit)
	lim := l.get(key, limit, p.Window, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	res := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(int64(math.Floor(tokens)), 0),
	}
	// 桶补满所需时间
	refill := time.Duration((float64(limit) - tokens) / float64(lim.Limit()) * float64(time.Second))
	res.ResetAt = now.Add(max(refill, 0))
	if !allowed {
		res.Remaining = 0
		res.RetryAfter = time.Duration((1 - tokens) / float64(lim.Limit()) * float64(time.Second))
	}
	return res
}
