package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrCompute_ComputesOnce(t *testing.T) {
	c := New[string]()
	content := []byte("same bytes")

	calls := 0
	compute := func(ctx context.Context, in []byte) (string, error) {
		calls++
		return fmt.Sprintf("artifact-%d", calls), nil
	}

	first, err := c.GetOrCompute(context.Background(), content, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.GetOrCompute(context.Background(), content, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected compute to run exactly once, ran %d times", calls)
	}
	if first != second {
		t.Errorf("expected identical artifacts, got %q and %q", first, second)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 stored entry, got %d", c.Len())
	}
}

func TestGetOrCompute_DistinctContent(t *testing.T) {
	c := New[string]()

	compute := func(ctx context.Context, in []byte) (string, error) {
		return string(in), nil
	}

	a, _ := c.GetOrCompute(context.Background(), []byte("a"), compute)
	b, _ := c.GetOrCompute(context.Background(), []byte("b"), compute)

	if a == b {
		t.Error("distinct content must not share cache entries")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New[[]byte]()
	content := []byte("payload")
	boom := errors.New("provider down")

	failing := func(ctx context.Context, in []byte) ([]byte, error) {
		return nil, boom
	}
	if _, err := c.GetOrCompute(context.Background(), content, failing); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed compute must not be stored, have %d entries", c.Len())
	}

	succeeding := func(ctx context.Context, in []byte) ([]byte, error) {
		return append([]byte(nil), in...), nil
	}
	got, err := c.GetOrCompute(context.Background(), content, succeeding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected artifact: %q", got)
	}
}

func TestGetOrCompute_ConcurrentMissCollapses(t *testing.T) {
	c := New[string]()
	content := []byte("hot key")

	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(ctx context.Context, in []byte) (string, error) {
		calls.Add(1)
		<-release
		return "artifact", nil
	}

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), content, compute)
		}(i)
	}

	close(release)
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != "artifact" {
			t.Errorf("goroutine %d: unexpected artifact %q", i, results[i])
		}
	}
	// Racing callers on the same key share one in-flight computation.
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single in-flight compute, got %d", got)
	}
}

func TestKey_Deterministic(t *testing.T) {
	if Key([]byte("x")) != Key([]byte("x")) {
		t.Error("identical bytes must hash identically")
	}
	if Key([]byte("x")) == Key([]byte("y")) {
		t.Error("distinct bytes must not collide")
	}
}

func TestHooks(t *testing.T) {
	var hits, misses int
	c := New(
		WithHitHook[string](func() { hits++ }),
		WithMissHook[string](func() { misses++ }),
	)

	compute := func(ctx context.Context, in []byte) (string, error) { return "v", nil }
	c.GetOrCompute(context.Background(), []byte("k"), compute)
	c.GetOrCompute(context.Background(), []byte("k"), compute)

	if misses != 1 {
		t.Errorf("expected 1 miss, got %d", misses)
	}
	if hits != 1 {
		t.Errorf("expected 1 hit, got %d", hits)
	}
}
