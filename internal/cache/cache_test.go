package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := Open(filepath.Join(t.TempDir(), "sentences.db"))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetUnknownWord(t *testing.T) {
	c := newTestCache(t)

	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get(unknown) = %v, want empty", got)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t)

	if err := c.Put("kot", []string{"s1", "s2"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if want := []string{"s1", "s2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}
}

func TestPutAppendsInsteadOfOverwriting(t *testing.T) {
	c := newTestCache(t)

	if err := c.Put("kot", []string{"s1", "s2"}); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := c.Put("kot", []string{"s3"}); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if want := []string{"s1", "s2", "s3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}
}

func TestPutEmptyIsNoOp(t *testing.T) {
	c := newTestCache(t)

	if err := c.Put("kot", nil); err != nil {
		t.Fatalf("Put(nil) failed: %v", err)
	}
	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get = %v, want empty after empty Put", got)
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)

	if err := c.Put("kot", []string{"s1"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Invalidate("kot"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get after Invalidate = %v, want empty", got)
	}

	// Invalidating again, or a word that never existed, is fine.
	if err := c.Invalidate("kot"); err != nil {
		t.Errorf("second Invalidate failed: %v", err)
	}
	if err := c.Invalidate("pies"); err != nil {
		t.Errorf("Invalidate of unknown word failed: %v", err)
	}
}

func TestDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentences.db")

	c := Open(path)
	if err := c.Put("kot", []string{"s1"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := Open(path)
	defer reopened.Close()

	got, err := reopened.Get("kot")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if want := []string{"s1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Get after reopen = %v, want %v", got, want)
	}
}

func TestLazyInitCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentences.db")
	c := Open(path)
	defer c.Close()

	// Get on a fresh path must initialize storage rather than fail.
	if _, err := c.Get("kot"); err != nil {
		t.Fatalf("Get before any Put failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestConcurrentPutsSameWord(t *testing.T) {
	c := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Put("kot", []string{fmt.Sprintf("s%d", i)}); err != nil {
				t.Errorf("concurrent Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := c.Get("kot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("got %d sentences after concurrent Puts, want 8", len(got))
	}
}
