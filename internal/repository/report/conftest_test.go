package report

import (
	"context"
	"path"
	"slices"
	"time"

	"github.com/kailas-cloud/blastxml/internal/db"
)

// mockStore is an in-memory implementation of the consumer interface.
type mockStore struct {
	hashes  map[string]map[string]string
	values  map[string][]byte
	expires map[string]time.Duration

	// err, when set, is returned by every call.
	err error
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes:  map[string]map[string]string{},
		values:  map[string][]byte{},
		expires: map[string]time.Duration{},
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.err != nil {
		return m.err
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGet(_ context.Context, key, field string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.hashes[key][field]
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		h, err := m.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.values, k)
	}
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, h := m.hashes[key]
	_, v := m.values[key]
	return h || v, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for k := range m.values {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.values[k]
	}
	return out, nil
}

func (m *mockStore) SetMulti(_ context.Context, items []db.KVSetItem, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	for _, it := range items {
		m.values[it.Key] = it.Value
		if ttl > 0 {
			m.expires[it.Key] = ttl
		}
	}
	return nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	if m.err != nil {
		return m.err
	}
	m.expires[key] = ttl
	return nil
}
