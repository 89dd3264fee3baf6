package storage

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store for the CLI and tests. Presigned URLs use the
// mem:// scheme and are not fetchable.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) PutObject(_ context.Context, key string, data []byte, _ string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) ReadObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, noSuchKey("get object", key)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) CopyObject(_ context.Context, srcKey, dstKey string) error {
	if strings.TrimSpace(dstKey) == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[srcKey]
	if !ok {
		return noSuchKey("copy object", srcKey)
	}
	m.objects[dstKey] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) PresignDownload(_ context.Context, key string, ttl time.Duration, fileName string, inline bool) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", noSuchKey("presign object", key)
	}
	q := url.Values{}
	q.Set("response-content-disposition", ContentDisposition(fileName, inline))
	q.Set("expires", ttl.String())
	return (&url.URL{Scheme: "mem", Path: "/" + key, RawQuery: q.Encode()}).String(), nil
}

func (m *Memory) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
