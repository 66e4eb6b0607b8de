package cullcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewStore(mr.Addr(), time.Hour)
}

func TestStoreMarkAndContains(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Contains(ctx, "sha-1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if ok {
		t.Fatal("unmarked sha reported present")
	}

	if err := s.Mark(ctx, "sha-1"); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	ok, err = s.Contains(ctx, "sha-1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Fatal("marked sha reported absent")
	}
}

func TestStoreMarkAllAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	shas := []string{"sha-a", "sha-b", "sha-c"}
	if err := s.MarkAll(ctx, shas); err != nil {
		t.Fatalf("MarkAll failed: %v", err)
	}
	for _, sha := range shas {
		ok, err := s.Contains(ctx, sha)
		if err != nil {
			t.Fatalf("Contains failed: %v", err)
		}
		if !ok {
			t.Errorf("sha %q should be marked after MarkAll", sha)
		}
	}

	if err := s.Purge(ctx); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	for _, sha := range shas {
		ok, err := s.Contains(ctx, sha)
		if err != nil {
			t.Fatalf("Contains failed: %v", err)
		}
		if ok {
			t.Errorf("sha %q should be gone after Purge", sha)
		}
	}
}

func TestStorePing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
