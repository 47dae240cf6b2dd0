package utils

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestPacerEnforcesMinimumInterval(t *testing.T) {
	base := 100 * time.Millisecond
	p := NewPacer(base, 0)
	ctx := context.Background()

	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		timestamps = append(timestamps, time.Now())
	}

	min := base - 10*time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between request %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestPacerZeroIsImmediate(t *testing.T) {
	p := NewPacer(0, 0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero pacer took %v", elapsed)
	}
}

func TestPacerHonoursCancellation(t *testing.T) {
	p := NewPacer(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Wait blocked for %v", elapsed)
	}
}

func TestPacerSharedAcrossGoroutines(t *testing.T) {
	base := 50 * time.Millisecond
	p := NewPacer(base, 0)

	var mu sync.Mutex
	var releases []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
				return
			}
			mu.Lock()
			releases = append(releases, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(releases, func(i, j int) bool { return releases[i].Before(releases[j]) })
	min := base - 10*time.Millisecond
	for i := 1; i < len(releases); i++ {
		if gap := releases[i].Sub(releases[i-1]); gap < min {
			t.Errorf("gap between release %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestRandomDelayBounds(t *testing.T) {
	base, jitter := 2*time.Second, 1500*time.Millisecond
	for i := 0; i < 200; i++ {
		d := RandomDelay(base, jitter)
		if d < base || d >= base+jitter {
			t.Fatalf("RandomDelay = %v; want in [%v, %v)", d, base, base+jitter)
		}
	}
	if d := RandomDelay(base, 0); d != base {
		t.Errorf("RandomDelay without jitter = %v; want %v", d, base)
	}
}
