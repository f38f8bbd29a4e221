package xquota

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// 响应头
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Result 配额检查结果
type Result struct {
	Allowed bool

	// Limit 当前策略的配额上限，降级放行时为 0
	Limit int64

	// Remaining 当前窗口剩余配额，拒绝时为 0
	Remaining int64

	// ResetAt 当前窗口结束时间
	ResetAt time.Time

	// RetryAfter 仅在拒绝时有值
	RetryAfter time.Duration

	// Degraded 存储不可用，结果来自降级策略
	Degraded bool
}

// Headers 返回配额响应头。Retry-After 向上取整，最小为 1 秒。
func (r *Result) Headers() map[string]string {
	h := map[string]string{
		HeaderLimit:     strconv.FormatInt(r.Limit, 10),
		HeaderRemaining: strconv.FormatInt(r.Remaining, 10),
		HeaderReset:     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
	if !r.Allowed && r.RetryAfter > 0 {
		sec := max(int64(math.Ceil(r.RetryAfter.Seconds())), 1)
		h[HeaderRetryAfter] = strconv.FormatInt(sec, 10)
	}
	return h
}

// SetHeaders 写入配额响应头。Limit <= 0 表示没有有效配额信息，不写。
func (r *Result) SetHeaders(w http.ResponseWriter) {
	if r.Limit <= 0 {
		return
	}
	for k, v := range r.Headers() {
		w.Header().Set(k, v)
	}
}
