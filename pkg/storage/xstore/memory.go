package xstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value    []byte
	hits     []time.Time
	expireAt time.Time
}

// memoryStore 单进程 Store，只适合测试与单实例部署
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	opts    *Options
	closed  bool
}

// NewMemory 创建内存 Store，过期在访问时惰性清理
func NewMemory(opts ...Option) Store {
	return &memoryStore{
		entries: make(map[string]*memEntry),
		opts:    buildOptions(opts),
	}
}

// live 返回未过期的条目，调用方持有锁
func (s *memoryStore) live(key string, now time.Time) *memEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !now.Before(e.expireAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *memoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if ttl <= 0 {
		return 0, ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrUnavailable
	}

	now := s.opts.Now()
	e := s.live(key, now)
	if e == nil {
		e = &memEntry{value: []byte("0"), expireAt: now.Add(ttl)}
		s.entries[key] = e
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	e.value = strconv.AppendInt(e.value[:0], n, 10)
	return n, nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrUnavailable
	}
	e := s.live(key, s.opts.Now())
	if e == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *memoryStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	s.entries[key] = &memEntry{
		value:    append([]byte(nil), value...),
		expireAt: s.opts.Now().Add(ttl),
	}
	return nil
}

func (s *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrUnavailable
	}
	return s.live(key, s.opts.Now()) != nil, nil
}

func (s *memoryStore) RecordHit(_ context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if window <= 0 {
		return 0, ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrUnavailable
	}

	e := s.live(key, s.opts.Now())
	if e == nil {
		e = &memEntry{}
		s.entries[key] = e
	}
	cutoff := now.Add(-window)
	kept := e.hits[:0]
	for _, ts := range e.hits {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.hits = append(kept, now)
	e.expireAt = s.opts.Now().Add(window)
	return int64(len(e.hits)), nil
}

func (s *memoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = make(map[string]*memEntry)
	return nil
}
