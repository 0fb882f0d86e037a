package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dugout/internal/model"
	"dugout/internal/testutil"
)

func TestAllocate_IssuesSixDigitCode(t *testing.T) {
	store := testutil.NewMemStore()
	a := NewCodeAllocator(store.Codes(), 6, 10)

	code, err := a.Allocate(context.Background(), "sess-1", "u1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code %q: want 6 digits", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code %q contains non-digit %q", code, r)
		}
	}

	doc := store.CodeDoc(code)
	if doc == nil {
		t.Fatal("code document not stored")
	}
	if doc.SessionID != "sess-1" || doc.OwnerID != "u1" {
		t.Fatalf("code doc = %+v", doc)
	}
}

func TestAllocate_ConcurrentAllocationsStayUnique(t *testing.T) {
	const allocations = 50

	store := testutil.NewMemStore()
	a := NewCodeAllocator(store.Codes(), 6, 10)

	var wg sync.WaitGroup
	codes := make(chan string, allocations)
	for i := 0; i < allocations; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code, err := a.Allocate(context.Background(), fmt.Sprintf("sess-%d", n), "u1", time.Now().Add(time.Hour))
			if err != nil {
				t.Errorf("allocate %d: %v", n, err)
				return
			}
			codes <- code
		}(i)
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		if seen[code] {
			t.Fatalf("code %q issued twice", code)
		}
		seen[code] = true
	}
	if store.CodeCount() != len(seen) {
		t.Fatalf("store has %d docs, issued %d codes", store.CodeCount(), len(seen))
	}
}

func TestAllocate_ExhaustedSpace(t *testing.T) {
	store := testutil.NewMemStore()
	// Single-digit space, fully pre-occupied: every draw collides.
	for i := 0; i < 10; i++ {
		store.PutCode(&model.JoinCode{
			Code:      fmt.Sprintf("%d", i),
			SessionID: "other",
			ExpiresAt: time.Now().Add(time.Hour),
		})
	}
	a := NewCodeAllocator(store.Codes(), 1, 5)

	_, err := a.Allocate(context.Background(), "sess-1", "u1", time.Now().Add(time.Hour))
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("err = %v, want ErrCodeExhausted", err)
	}
	if store.CodeCount() != 10 {
		t.Fatalf("exhausted allocation must not add documents, have %d", store.CodeCount())
	}
}

func TestAllocate_RetriesPastCollision(t *testing.T) {
	store := testutil.NewMemStore()
	// Occupy most of a single-digit space; with 10 attempts the
	// allocator should still find a free slot with high probability.
	for i := 0; i < 5; i++ {
		store.PutCode(&model.JoinCode{
			Code:      fmt.Sprintf("%d", i),
			SessionID: "other",
			ExpiresAt: time.Now().Add(time.Hour),
		})
	}
	a := NewCodeAllocator(store.Codes(), 1, 50)

	code, err := a.Allocate(context.Background(), "sess-1", "u1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if doc := store.CodeDoc(code); doc == nil || doc.SessionID != "sess-1" {
		t.Fatalf("allocated code %q not bound to session", code)
	}
}
