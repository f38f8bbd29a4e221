package xsecure

import "sync/atomic"

// Holder 持有当前 Envelope，配置重载时整体替换
type Holder struct {
	p atomic.Pointer[Envelope]
}

// NewHolder 创建 Holder
func NewHolder(e *Envelope) *Holder {
	h := &Holder{}
	h.p.Store(e)
	return h
}

// Load 返回当前 Envelope
func (h *Holder) Load() *Envelope {
	return h.p.Load()
}

// Store 替换 Envelope，nil 被忽略
func (h *Holder) Store(e *Envelope) {
	if e != nil {
		h.p.Store(e)
	}
}
