package postgres

import (
	"context"
	"os"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("GASTOS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GASTOS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	key := "test:" + t.Name()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), "DELETE FROM ledger_entries WHERE key = $1", key)
	})

	if err := s.Save(ctx, key, []byte(`[{"from":"Juan","to":"María","amount":40,"isSettled":true}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := s.Load(ctx, key)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got) == 0 || got[0] != '[' {
		t.Fatalf("unexpected value %s", got)
	}

	if _, found, err := s.Load(ctx, key+":missing"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}
}
