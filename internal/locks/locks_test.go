package locks

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryAcquireRelease(t *testing.T) {
	l := New()

	if !l.TryAcquire("s1") {
		t.Fatal("first acquire failed")
	}
	if l.TryAcquire("s1") {
		t.Fatal("second acquire succeeded while held")
	}
	if !l.Held("s1") {
		t.Error("Held = false while held")
	}

	// Independent sessions are unaffected.
	if !l.TryAcquire("s2") {
		t.Error("unrelated session blocked")
	}

	l.Release("s1")
	if !l.TryAcquire("s1") {
		t.Error("acquire after release failed")
	}
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	l := New()
	l.Release("never-held")
	if !l.TryAcquire("never-held") {
		t.Fatal("acquire failed after no-op release")
	}
}

func TestConcurrentAcquireExclusive(t *testing.T) {
	l := New()

	const goroutines = 32
	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.TryAcquire("s1") {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("%d goroutines acquired the lock, want exactly 1", got)
	}
}
