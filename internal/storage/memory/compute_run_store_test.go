package memory

import (
	"context"
	"errors"
	"testing"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/storage"
)

func TestComputeRunStore_InsertAndComplete(t *testing.T) {
	store := NewComputeRunStore()
	ctx := context.Background()

	run := &domain.ComputeRun{
		RunID:       "run-1",
		StartedAtMs: 1704067200000,
		Status:      domain.RunStatusRunning,
		Features:    []string{"close_slope(14)"},
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	run.Status = domain.RunStatusCompleted
	run.CompletedAtMs = ptr(int64(1704067260000))
	run.Instruments = 3
	run.PointsWritten = 900
	if err := store.Complete(ctx, run); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.RunStatusCompleted {
		t.Errorf("Expected status COMPLETED, got %s", got.Status)
	}
	if got.CompletedAtMs == nil || *got.CompletedAtMs != 1704067260000 {
		t.Errorf("Unexpected completion timestamp: %v", got.CompletedAtMs)
	}
	if got.PointsWritten != 900 {
		t.Errorf("Expected 900 points written, got %d", got.PointsWritten)
	}
}

func TestComputeRunStore_Duplicate(t *testing.T) {
	store := NewComputeRunStore()
	ctx := context.Background()

	run := &domain.ComputeRun{RunID: "run-1", Status: domain.RunStatusRunning}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestComputeRunStore_CompleteMissing(t *testing.T) {
	store := NewComputeRunStore()
	err := store.Complete(context.Background(), &domain.ComputeRun{RunID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestComputeRunStore_GetRecent(t *testing.T) {
	store := NewComputeRunStore()
	ctx := context.Background()

	starts := []int64{100, 300, 200}
	for i, startMs := range starts {
		run := &domain.ComputeRun{
			RunID:       []string{"run-a", "run-b", "run-c"}[i],
			StartedAtMs: startMs,
			Status:      domain.RunStatusRunning,
		}
		if err := store.Insert(ctx, run); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recent, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(recent))
	}
	if recent[0].RunID != "run-b" || recent[1].RunID != "run-c" {
		t.Errorf("Unexpected ordering: %s, %s", recent[0].RunID, recent[1].RunID)
	}
}

func TestComputeRunStore_CopyIsolation(t *testing.T) {
	store := NewComputeRunStore()
	ctx := context.Background()

	run := &domain.ComputeRun{
		RunID:    "run-1",
		Status:   domain.RunStatusRunning,
		Features: []string{"close_slope(14)"},
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	run.Features[0] = "mutated"
	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Features[0] != "close_slope(14)" {
		t.Errorf("Stored run shares slice with caller: %v", got.Features)
	}
}
