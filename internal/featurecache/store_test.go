package featurecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/sampler"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "features.db"), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(duration float64) *sampler.Result {
	return &sampler.Result{
		AssetPath:     "/media/clip.mp4",
		TotalDuration: duration,
		Frames: []sampler.FrameAnalysis{
			{Timestamp: 0.5, Brightness: 0.4, SceneType: "wide_shot"},
		},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.Put(ctx, "asset1", "opts1", sampleResult(30)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "asset1", "opts1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("entry missing after put")
	}
	if got.TotalDuration != 30 || len(got.Frames) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.Get(context.Background(), "nope", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("miss reported as hit")
	}
}

func TestEntriesAreImmutable(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.Put(ctx, "asset1", "opts1", sampleResult(30)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "asset1", "opts1", sampleResult(99)); err != nil {
		t.Fatal(err)
	}
	got, _, err := s.Get(ctx, "asset1", "opts1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalDuration != 30 {
		t.Errorf("second put replaced an immutable entry: duration = %.0f", got.TotalDuration)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.Put(ctx, "asset1", "opts1", sampleResult(10)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "asset1", "opts2", sampleResult(20)); err != nil {
		t.Fatal(err)
	}
	a, _, _ := s.Get(ctx, "asset1", "opts1")
	b, _, _ := s.Get(ctx, "asset1", "opts2")
	if a.TotalDuration != 10 || b.TotalDuration != 20 {
		t.Errorf("options fingerprints collided: %.0f / %.0f", a.TotalDuration, b.TotalDuration)
	}
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	var calls int32
	compute := func(context.Context) (*sampler.Result, error) {
		atomic.AddInt32(&calls, 1)
		return sampleResult(42), nil
	}
	res, cached, err := s.GetOrCompute(ctx, "a", "o", compute)
	if err != nil {
		t.Fatal(err)
	}
	if cached || res.TotalDuration != 42 {
		t.Errorf("first call: cached = %v, duration = %.0f", cached, res.TotalDuration)
	}
	res, cached, err = s.GetOrCompute(ctx, "a", "o", compute)
	if err != nil {
		t.Fatal(err)
	}
	if !cached || res.TotalDuration != 42 {
		t.Errorf("second call: cached = %v", cached)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrComputeDeduplicatesConcurrentCallers(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	var calls int32
	gate := make(chan struct{})
	compute := func(context.Context) (*sampler.Result, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return sampleResult(7), nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.GetOrCompute(ctx, "a", "o", compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute ran %d times for concurrent callers, want 1", n)
	}
}

func TestGetOrComputeError(t *testing.T) {
	s := openTest(t)
	boom := errors.New("boom")
	_, _, err := s.GetOrCompute(context.Background(), "a", "o", func(context.Context) (*sampler.Result, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	// A failed compute leaves no entry behind.
	_, ok, _ := s.Get(context.Background(), "a", "o")
	if ok {
		t.Error("failed compute cached a result")
	}
}

func TestStatsAndClear(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_ = s.Put(ctx, "a1", "o1", sampleResult(1))
	_ = s.Put(ctx, "a1", "o2", sampleResult(2))
	_ = s.Put(ctx, "a2", "o1", sampleResult(3))
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 3 || st.Assets != 2 || st.Bytes <= 0 {
		t.Errorf("stats = %+v", st)
	}
	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cleared %d, want 3", n)
	}
	st, _ = s.Stats(ctx)
	if st.Entries != 0 {
		t.Errorf("entries after clear = %d", st.Entries)
	}
}

func TestAssetFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	fp1, err := AssetFingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := AssetFingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp1 != fp2 {
		t.Error("fingerprint not stable for an unchanged file")
	}
	// Grow the file and shift its mtime.
	if err := os.WriteFile(path, []byte("aaaabbbb"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, time.Now().Add(time.Minute), time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	fp3, err := AssetFingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp3 == fp1 {
		t.Error("fingerprint unchanged after the file changed")
	}
}

func TestOptionsFingerprint(t *testing.T) {
	a := OptionsFingerprint(sampler.Options{IntervalSeconds: 1, Strategy: "uniform", MaxFrames: 600})
	b := OptionsFingerprint(sampler.Options{IntervalSeconds: 1, Strategy: "uniform", MaxFrames: 600})
	c := OptionsFingerprint(sampler.Options{IntervalSeconds: 2, Strategy: "uniform", MaxFrames: 600})
	if a != b {
		t.Error("identical options produced different fingerprints")
	}
	if a == c {
		t.Error("different options collided")
	}
}
