package stats

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "stats.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetReturnsDefaultsWhenEmpty(t *testing.T) {
	s := setupTestStore(t)
	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != Defaults {
		t.Fatalf("got %+v, want defaults %+v", got, Defaults)
	}
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	want := Stats{Beneficiaries: 1200, ProsthesesFitted: 800, YearsExperience: 9, Specialists: 14}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt should be set after Save")
	}
	got.UpdatedAt = want.UpdatedAt
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSaveRejectsNegative(t *testing.T) {
	s := setupTestStore(t)
	err := s.Save(context.Background(), Stats{Specialists: -1})
	if !errors.Is(err, ErrNegative) {
		t.Fatalf("err = %v, want ErrNegative", err)
	}
	got, _ := s.Get(context.Background())
	if got.Specialists != Defaults.Specialists {
		t.Fatalf("rejected save must not persist: %+v", got)
	}
}

func TestSetSingleCounter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, YearsExperience, 20); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.YearsExperience != 20 {
		t.Fatalf("YearsExperience = %d, want 20", got.YearsExperience)
	}
	if got.Beneficiaries != Defaults.Beneficiaries {
		t.Fatalf("untouched counter changed: %d", got.Beneficiaries)
	}
	if err := s.Set(ctx, "visitors", 1); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Set(context.Background(), Specialists, 31); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.Get(context.Background())
	if got.Specialists != 31 {
		t.Fatalf("Specialists = %d after reopen", got.Specialists)
	}
}
