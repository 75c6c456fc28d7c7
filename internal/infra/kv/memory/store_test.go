package memory

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "acts"); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	payload := []byte(`[{"id":"a1"}]`)
	if err := s.Set(ctx, "acts", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload[0] = 'x'
	got, ok, err := s.Get(ctx, "acts")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[{"id":"a1"}]` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one key")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
