package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) *RedisStore[testState] {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	s := NewRedisStore[testState](RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_SaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	if err := s.SaveStep(ctx, "run-1", 1, "retrieve", testState{Question: "q", LoopStep: 1}); err != nil {
		t.Fatalf("SaveStep: %v", err)
	}
	if err := s.SaveStep(ctx, "run-1", 2, "generate", testState{Question: "q", LoopStep: 2}); err != nil {
		t.Fatalf("SaveStep: %v", err)
	}

	state, step, err := s.LoadLatest(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if step != 2 || state.LoopStep != 2 {
		t.Fatalf("expected step 2, LoopStep 2, got step=%d state=%+v", step, state)
	}
}

func TestRedisStore_LoadLatest_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	if _, _, err := s.LoadLatest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_LoadHistory_Ordered(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	for i := 1; i <= 3; i++ {
		if err := s.SaveStep(ctx, "run-2", i, "node", testState{LoopStep: i}); err != nil {
			t.Fatalf("SaveStep: %v", err)
		}
	}

	history, err := s.LoadHistory(ctx, "run-2")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	for i, rec := range history {
		if rec.Step != i+1 {
			t.Fatalf("expected step %d at index %d, got %d", i+1, i, rec.Step)
		}
	}
}

func TestRedisStore_LoadHistory_EmptyNotError(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	history, err := s.LoadHistory(ctx, "never-run")
	if err != nil {
		t.Fatalf("expected no error for unknown run, got %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d records", len(history))
	}
}

func TestRedisStore_KeysAreNamespacedByPrefix(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer mr.Close()

	a := NewRedisStore[testState](RedisOptions{Addr: mr.Addr(), Prefix: "a:"})
	b := NewRedisStore[testState](RedisOptions{Addr: mr.Addr(), Prefix: "b:"})
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()

	if err := a.SaveStep(ctx, "run-1", 1, "retrieve", testState{LoopStep: 1}); err != nil {
		t.Fatalf("SaveStep: %v", err)
	}

	if _, _, err := b.LoadLatest(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected run-1 under prefix b: to be absent, got %v", err)
	}
}

func TestRedisStore_Ping(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
