package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/models"
)

func TestScanLifecyclePersistence(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scan := models.NewScan(models.ScanOptions{Parallelism: 3, DaysBack: 7})
	if err := storage.SaveScan(ctx, scan); err != nil {
		t.Fatalf("Failed to save scan: %v", err)
	}

	active, err := storage.GetActiveScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != scan.ID {
		t.Fatalf("Expected active scan %s, got %+v", scan.ID, active)
	}
	if active.Status != models.ScanStatusInitializing {
		t.Errorf("Expected initializing scan, got %s", active.Status)
	}

	scan.MarkRunning(10)
	if err := storage.SaveScan(ctx, scan); err != nil {
		t.Fatal(err)
	}
	active, err = storage.GetActiveScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.Status != models.ScanStatusRunning || active.TotalArticles != 10 {
		t.Errorf("Expected running scan with 10 articles, got %s/%d", active.Status, active.TotalArticles)
	}

	scan.MarkCompleted("")
	if err := storage.SaveScan(ctx, scan); err != nil {
		t.Fatal(err)
	}
	active, err = storage.GetActiveScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Errorf("Expected no active scan after completion, got %s", active.ID)
	}

	stored, err := storage.GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
}

func TestGetScanMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())

	scan, err := storage.GetScan(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected no error for missing scan, got %v", err)
	}
	if scan != nil {
		t.Errorf("Expected nil for missing scan, got %+v", scan)
	}
}

func TestIncrementProcessedConcurrent(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scan := models.NewScan(models.ScanOptions{})
	scan.MarkRunning(64)
	if err := storage.SaveScan(ctx, scan); err != nil {
		t.Fatal(err)
	}

	const increments = 64
	var wg sync.WaitGroup
	for i := 0; i < increments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := storage.IncrementProcessed(ctx, scan.ID); err != nil {
				t.Errorf("Increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := storage.GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ProcessedArticles != increments {
		t.Errorf("Expected %d processed, got %d", increments, stored.ProcessedArticles)
	}
}

func TestListScansNewestFirst(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		scan := models.NewScan(models.ScanOptions{})
		scan.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		scan.MarkCompleted("")
		if err := storage.SaveScan(ctx, scan); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, scan.ID)
	}

	scans, err := storage.ListScans(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 {
		t.Fatalf("Expected 2 scans, got %d", len(scans))
	}
	if scans[0].ID != ids[2] || scans[1].ID != ids[1] {
		t.Errorf("Expected newest-first order, got %s, %s", scans[0].ID, scans[1].ID)
	}

	rest, err := storage.ListScans(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Errorf("Expected offset to return oldest scan, got %+v", rest)
	}
}
