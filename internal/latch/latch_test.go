package latch

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryFinish_FirstCallerWins(t *testing.T) {
	g := New()
	if !g.TryFinish() {
		t.Fatal("first TryFinish should return true")
	}
	if g.TryFinish() {
		t.Fatal("second TryFinish should return false")
	}
	if !g.Finished() {
		t.Fatal("gate should report finished")
	}
}

func TestTryFinish_ExactlyOnceUnderContention(t *testing.T) {
	const callers = 100

	g := New()
	var wins int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryFinish() {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("want exactly 1 winner, got %d", wins)
	}
}

func TestGate_NotReusable(t *testing.T) {
	g := New()
	g.TryFinish()
	for i := 0; i < 3; i++ {
		if g.TryFinish() {
			t.Fatalf("finished gate returned true on call %d", i)
		}
	}
}
