package blackboard

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	b := New()

	b.Put("plan", "1. research the topic", "planner")

	e, err := b.Get("plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Value != "1. research the topic" {
		t.Errorf("value = %q", e.Value)
	}
	if e.WriterRole != "planner" {
		t.Errorf("writer = %q, want planner", e.WriterRole)
	}
	if e.Version != 1 {
		t.Errorf("version = %d, want 1", e.Version)
	}
}

func TestGetNotFound(t *testing.T) {
	b := New()

	_, err := b.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOverwriteIncrementsVersion(t *testing.T) {
	b := New()

	b.Put("findings", "first draft", "researcher")
	b.Put("findings", "revised draft", "researcher")

	e, err := b.Get("findings")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Version != 2 {
		t.Errorf("version = %d, want 2", e.Version)
	}
	if e.Value != "revised draft" {
		t.Errorf("value = %q, want last write to win", e.Value)
	}
}

func TestReadYourWrites(t *testing.T) {
	b := New()

	// A get issued after a put completes observes that value or newer.
	b.Put("k", "v1", "w")
	e, err := b.Get("k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Version < 1 {
		t.Errorf("observed version %d older than own write", e.Version)
	}
}

func TestKeysSorted(t *testing.T) {
	b := New()
	b.Put("c", "3", "w")
	b.Put("a", "1", "w")
	b.Put("b", "2", "w")

	keys := b.Keys()
	want := []string{"a", "b", "c"}
	if len(keys) != 3 {
		t.Fatalf("got %d keys, want 3", len(keys))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestGetPrefix(t *testing.T) {
	b := New()
	b.Put("research/step-1", "findings one", "researcher")
	b.Put("research/step-2", "findings two", "researcher")
	b.Put("critique", "looks fine", "critic")

	entries := b.GetPrefix("research/")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "research/step-1" || entries[1].Key != "research/step-2" {
		t.Errorf("entries out of order: %q, %q", entries[0].Key, entries[1].Key)
	}
}

func TestConcurrentPutsDistinctKeys(t *testing.T) {
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("research/step-%d", n)
			b.Put(key, fmt.Sprintf("findings %d", n), "researcher")
		}(i)
	}
	wg.Wait()

	if b.Len() != 50 {
		t.Errorf("len = %d, want 50", b.Len())
	}
}

func TestConcurrentPutGetSameKey(t *testing.T) {
	b := New()
	b.Put("shared", "v0", "w")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Put("shared", fmt.Sprintf("v%d", n), "w")
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := b.Get("shared")
			if err != nil {
				t.Errorf("get failed during concurrent writes: %v", err)
				return
			}
			// Entries are replaced whole; a read must never see a
			// torn pair of value and version.
			if e.Value == "" || e.Version < 1 {
				t.Errorf("observed partial entry: %+v", e)
			}
		}()
	}
	wg.Wait()

	e, err := b.Get("shared")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Version != 21 {
		t.Errorf("final version = %d, want 21", e.Version)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenArchive(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer a.Close()

	b := New()
	b.Put("plan", "the plan", "planner")
	b.Put("research/step-1", "findings", "researcher")

	if err := a.Store("run-1", b); err != nil {
		t.Fatalf("store: %v", err)
	}

	entries, err := a.Load("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "plan" || entries[1].Key != "research/step-1" {
		t.Errorf("unexpected keys: %q, %q", entries[0].Key, entries[1].Key)
	}

	// Re-archiving replaces the previous entries.
	b.Put("extra", "late entry", "synthesizer")
	if err := a.Store("run-1", b); err != nil {
		t.Fatalf("re-store: %v", err)
	}
	entries, err = a.Load("run-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries after re-archive, want 3", len(entries))
	}
}
