package xident

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go4.org/netipx"
)

const (
	// UnknownAddress 缺少转发地址时使用的地址
	UnknownAddress = "unknown"

	// HeaderForwardedFor 转发地址链请求头
	HeaderForwardedFor = "X-Forwarded-For"

	// IDLength 标识长度（十六进制字符数）
	IDLength = 16
)

// Resolver 客户端标识解析器，并发安全
type Resolver struct {
	signatureHeader string
	trusted         *netipx.IPSet
}

// Option 解析器选项
type Option func(*Resolver) error

// WithSignatureHeader 设置客户端签名来源请求头，默认 User-Agent
func WithSignatureHeader(name string) Option {
	return func(r *Resolver) error {
		if name = strings.TrimSpace(name); name != "" {
			r.signatureHeader = http.CanonicalHeaderKey(name)
		}
		return nil
	}
}

// WithTrustedProxies 只在直连对端属于这些网段时采信 X-Forwarded-For
//
// 接受 CIDR（10.0.0.0/8）、单个地址、或地址区间（10.0.0.1-10.0.0.9）。
// 未配置时总是采信转发头。
func WithTrustedProxies(entries ...string) Option {
	return func(r *Resolver) error {
		if len(entries) == 0 {
			return nil
		}
		var b netipx.IPSetBuilder
		for _, e := range entries {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			switch {
			case strings.Contains(e, "/"):
				p, err := netip.ParsePrefix(e)
				if err != nil {
					return fmt.Errorf("%w: %q: %w", ErrInvalidProxy, e, err)
				}
				b.AddPrefix(p.Masked())
			case strings.Contains(e, "-"):
				rng, err := netipx.ParseIPRange(e)
				if err != nil {
					return fmt.Errorf("%w: %q: %w", ErrInvalidProxy, e, err)
				}
				b.AddRange(rng)
			default:
				a, err := netip.ParseAddr(e)
				if err != nil {
					return fmt.Errorf("%w: %q: %w", ErrInvalidProxy, e, err)
				}
				b.Add(a.Unmap())
			}
		}
		set, err := b.IPSet()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProxy, err)
		}
		r.trusted = set
		return nil
	}
}

// New 创建解析器
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{signatureHeader: "User-Agent"}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Resolve 返回请求的客户端标识。纯函数，无副作用。
func (r *Resolver) Resolve(req *http.Request) string {
	return Hash(r.Address(req), req.Header.Get(r.signatureHeader))
}

// Address 返回参与哈希的地址部分
func (r *Resolver) Address(req *http.Request) string {
	if r.trusted != nil {
		peer, ok := peerAddr(req.RemoteAddr)
		if !ok || !r.trusted.Contains(peer) {
			if ok {
				return peer.String()
			}
			return UnknownAddress
		}
	}
	return FirstForwarded(req.Header.Get(HeaderForwardedFor))
}

// FirstForwarded 取转发链中的第一个地址，为空时返回 UnknownAddress
func FirstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first == "" {
		return UnknownAddress
	}
	return first
}

// Hash 计算固定长度的标识
func Hash(address, signature string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64String(address+"|"+signature))
	return hex.EncodeToString(buf[:])
}

func peerAddr(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}
