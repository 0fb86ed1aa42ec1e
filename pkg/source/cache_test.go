package source

import (
	"fmt"
	"testing"
	"time"

	"github.com/swxkit/kpindex/pkg/types"
)

type fakeUpstream struct {
	samples []types.Sample
	err     error
	loads   int
}

func (f *fakeUpstream) Load(force bool) ([]types.Sample, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func testSamples() []types.Sample {
	start := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]types.Sample, 16)
	for i := range samples {
		samples[i] = types.Sample{
			Time: start.Add(time.Duration(i) * types.GridInterval),
			Kp:   float64(i%28) / 3,
		}
	}
	return samples
}

func TestCacheLoad(t *testing.T) {
	tmpDir := t.TempDir()
	upstream := &fakeUpstream{samples: testSamples()}

	cache, err := NewCache(upstream, &CacheConfig{Path: tmpDir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}
	defer cache.Close()

	// Nothing stored yet: the first lazy load goes upstream.
	samples, err := cache.Load(false)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(samples) != 16 {
		t.Fatalf("got %d samples; want 16", len(samples))
	}
	if upstream.loads != 1 {
		t.Errorf("upstream loads = %d; want 1", upstream.loads)
	}

	// Second lazy load is served from disk.
	samples, err = cache.Load(false)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if upstream.loads != 1 {
		t.Errorf("upstream loads after cached read = %d; want 1", upstream.loads)
	}
	for i, s := range samples {
		want := upstream.samples[i]
		if !s.Time.Equal(want.Time) || s.Kp != want.Kp {
			t.Fatalf("cached sample %d = %+v; want %+v", i, s, want)
		}
	}

	// Forced load always refetches.
	if _, err := cache.Load(true); err != nil {
		t.Fatalf("forced Load error: %v", err)
	}
	if upstream.loads != 2 {
		t.Errorf("upstream loads after forced read = %d; want 2", upstream.loads)
	}

	meta, ok, err := cache.Meta()
	if err != nil || !ok {
		t.Fatalf("Meta = ok=%v err=%v; want stored metadata", ok, err)
	}
	if meta.Samples != 16 {
		t.Errorf("meta.Samples = %d; want 16", meta.Samples)
	}
	if meta.FetchedAt.IsZero() {
		t.Error("meta.FetchedAt is zero")
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	upstream := &fakeUpstream{samples: testSamples()}

	cache, err := NewCache(upstream, &CacheConfig{Path: tmpDir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}
	if _, err := cache.Load(false); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// A fresh process-equivalent open must serve from disk without
	// touching the upstream.
	reopened, err := NewCache(&fakeUpstream{err: fmt.Errorf("upstream must not be hit")}, &CacheConfig{Path: tmpDir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewCache (reopen) error: %v", err)
	}
	defer reopened.Close()

	samples, err := reopened.Load(false)
	if err != nil {
		t.Fatalf("Load after reopen error: %v", err)
	}
	if len(samples) != 16 {
		t.Errorf("got %d samples after reopen; want 16", len(samples))
	}
}

func TestCachePropagatesUpstreamError(t *testing.T) {
	tmpDir := t.TempDir()
	upstream := &fakeUpstream{err: fmt.Errorf("HTTP 503 Service Unavailable")}

	cache, err := NewCache(upstream, &CacheConfig{Path: tmpDir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}
	defer cache.Close()

	if _, err := cache.Load(false); err == nil {
		t.Error("Load succeeded with a failing upstream and an empty cache; want error")
	}

	meta, ok, err := cache.Meta()
	if err != nil {
		t.Fatalf("Meta error: %v", err)
	}
	if ok {
		t.Errorf("Meta = %+v; want nothing stored", meta)
	}
}
