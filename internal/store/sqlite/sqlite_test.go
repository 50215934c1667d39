package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, found, err := s.Load(ctx, "missing"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	if err := s.Save(ctx, "k", []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "k", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, found, err := s.Load(ctx, "k")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Fatalf("got %s", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening runs migrations again and keeps the data.
	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, found, err = s2.Load(ctx, "k")
	if err != nil || !found || string(got) != `[{"id":"1"}]` {
		t.Fatalf("after reopen: %s found=%v err=%v", got, found, err)
	}
}
