package xrespcache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"
)

// Record 存储中的一条缓存响应
type Record struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Key 计算缓存 key。url.Values.Encode 按 key 排序，同一 key 的多个值保持原顺序。
func Key(path string, query url.Values) string {
	sum := sha256.Sum256([]byte(path + "?" + query.Encode()))
	return "cache:" + hex.EncodeToString(sum[:])
}

// DefaultHeaderWhitelist 默认随记录保存的响应头
var DefaultHeaderWhitelist = []string{
	"Content-Type",
	"Content-Language",
	"Content-Encoding",
	"ETag",
	"Last-Modified",
	"Vary",
}

func filterHeader(src http.Header, whitelist []string) http.Header {
	dst := make(http.Header, len(whitelist))
	for _, name := range whitelist {
		if vs := src.Values(name); len(vs) > 0 {
			dst[http.CanonicalHeaderKey(name)] = append([]string(nil), vs...)
		}
	}
	return dst
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
