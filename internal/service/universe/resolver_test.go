package universe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
	"BluffScan/pkg/cache"
	applogger "BluffScan/pkg/logger"
)

type fakeDirectory struct {
	members []string
	err     error
	calls   int
}

func (f *fakeDirectory) SearchTickers(ctx context.Context, query string, limit int) ([]models.TickerMatch, error) {
	return nil, errors.New("not used")
}

func (f *fakeDirectory) IndexConstituents(ctx context.Context) ([]string, error) {
	f.calls++
	return f.members, f.err
}

// stubCache is an in-memory cache.Service good enough for resolver tests.
type stubCache struct {
	data map[string][]byte
}

func newStubCache() *stubCache { return &stubCache{data: map[string][]byte{}} }

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = b
	return nil
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	b, ok := s.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (s *stubCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubCache) DeleteByPattern(context.Context, string) error { return nil }

func (s *stubCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if _, ok := s.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *stubCache) Increment(context.Context, string) (int64, error) { return 0, nil }

func (s *stubCache) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}

func (s *stubCache) MSet(context.Context, map[string]interface{}, time.Duration) error { return nil }

func (s *stubCache) MGet(context.Context, ...string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *stubCache) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (s *stubCache) Unlock(context.Context, string) error { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestDefaultUniverseLiveMembership(t *testing.T) {
	dir := &fakeDirectory{members: []string{"msft", "aapl", "AAPL"}}
	r := NewResolver(dir, newStubCache(), Config{Size: 2}, testLogger(t))

	uni, err := r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	require.Equal(t, "index-live-top2", uni.Source)
	require.Equal(t, []string{"AAPL", "MSFT"}, uni.Tickers)
	require.NotNil(t, uni.AsOf)
}

func TestDefaultUniverseServedFromCache(t *testing.T) {
	dir := &fakeDirectory{members: []string{"AAPL", "MSFT"}}
	c := newStubCache()
	r := NewResolver(dir, c, Config{Size: 2}, testLogger(t))

	_, err := r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	_, err = r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, dir.calls)
}

func TestDefaultUniverseSnapshotFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.csv")
	csv := "ticker,as_of\nmsft,2024-06-30\naapl,2024-06-30\nBRK.B,2024-06-30\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	dir := &fakeDirectory{err: errors.New("membership endpoint requires premium plan")}
	r := NewResolver(dir, newStubCache(), Config{Size: 3, SnapshotPath: path}, testLogger(t))

	uni, err := r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	require.Equal(t, "snapshot-top3", uni.Source)
	require.Equal(t, []string{"AAPL", "BRK-B", "MSFT"}, uni.Tickers)
	require.NotNil(t, uni.AsOf)
	require.Equal(t, "2024-06-30", uni.AsOf.Format("2006-01-02"))
}

func TestDefaultUniverseSeedFallback(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("unreachable")}
	r := NewResolver(dir, newStubCache(), Config{Size: 10}, testLogger(t))

	uni, err := r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uni.Source, "fallback-static"))
	require.Len(t, uni.Tickers, 10)
}

func TestResizePadsShortUniverse(t *testing.T) {
	dir := &fakeDirectory{members: []string{"AAPL", "MSFT"}}
	r := NewResolver(dir, newStubCache(), Config{Size: 5}, testLogger(t))

	uni, err := r.DefaultUniverse(context.Background())
	require.NoError(t, err)
	require.Len(t, uni.Tickers, 5)
	require.Contains(t, uni.Tickers, "AAPL")
	require.Contains(t, uni.Tickers, "MSFT")
}
