package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestJSONFile(t *testing.T) (*JSONFileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_data.json")
	s, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile failed: %v", err)
	}
	return s, path
}

func TestJSONFileRoundTrip(t *testing.T) {
	s, _ := newTestJSONFile(t)
	ctx := context.Background()

	want := testCredential("alice")
	if err := s.UpsertCredential(ctx, want); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}

	got, err := s.GetCredential(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected credential, got nil")
	}
	if got.Email != want.Email || got.Phone != want.Phone || got.PasswordHash != want.PasswordHash {
		t.Errorf("Round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestJSONFileMissingFileIsEmpty(t *testing.T) {
	s, _ := newTestJSONFile(t)

	got, err := s.GetCredential(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for empty store, got %+v", got)
	}
}

func TestJSONFileCorruptFileTreatedAsEmpty(t *testing.T) {
	s, path := newTestJSONFile(t)
	ctx := context.Background()

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	// Reads must not fail.
	got, err := s.GetCredential(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCredential on corrupt store failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil from corrupt store, got %+v", got)
	}

	// Writes recover the store.
	if err := s.UpsertCredential(ctx, testCredential("alice")); err != nil {
		t.Fatalf("UpsertCredential on corrupt store failed: %v", err)
	}
	got, err = s.GetCredential(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCredential after recovery failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected credential after recovery, got nil")
	}
}

func TestJSONFileUpsertOverwrites(t *testing.T) {
	s, _ := newTestJSONFile(t)
	ctx := context.Background()

	first := testCredential("alice")
	if err := s.UpsertCredential(ctx, first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	second := testCredential("alice")
	second.Email = "new@example.com"
	if err := s.UpsertCredential(ctx, second); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := s.GetCredential(ctx, "alice")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Errorf("Expected latest record to win, got email %q", got.Email)
	}
}

func TestJSONFileConcurrentUpserts(t *testing.T) {
	s, _ := newTestJSONFile(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.UpsertCredential(ctx, testCredential(fmt.Sprintf("user%d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent upsert failed: %v", err)
	}

	for i := 0; i < n; i++ {
		got, err := s.GetCredential(ctx, fmt.Sprintf("user%d", i))
		if err != nil {
			t.Fatalf("GetCredential failed: %v", err)
		}
		if got == nil {
			t.Errorf("Lost update: user%d not found", i)
		}
	}
}
