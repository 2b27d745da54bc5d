package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/reelscan/reelscan/internal/interfaces"
	"github.com/reelscan/reelscan/internal/models"
)

// ScanStorage implements the ScanStorage interface for Badger
type ScanStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScanStorage creates a new ScanStorage instance
func NewScanStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScanStorage {
	return &ScanStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ScanStorage) SaveScan(ctx context.Context, scan *models.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	if err := s.db.Store().Upsert(scan.ID, *scan); err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

func (s *ScanStorage) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	var scan models.Scan
	if err := s.db.Store().Get(scanID, &scan); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &scan, nil
}

func (s *ScanStorage) GetActiveScan(ctx context.Context) (*models.Scan, error) {
	scans, err := s.ListActiveScans(ctx)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, nil
	}
	// At most one should exist; if the invariant was ever violated, return
	// the newest and let the watchdog close out the rest.
	newest := scans[0]
	for _, scan := range scans[1:] {
		if scan.CreatedAt.After(newest.CreatedAt) {
			newest = scan
		}
	}
	return newest, nil
}

func (s *ScanStorage) ListActiveScans(ctx context.Context) ([]*models.Scan, error) {
	var scans []models.Scan
	if err := s.db.Store().Find(&scans, badgerhold.Where("Status").Ne(models.ScanStatusCompleted)); err != nil {
		return nil, fmt.Errorf("failed to list active scans: %w", err)
	}

	result := make([]*models.Scan, len(scans))
	for i := range scans {
		result[i] = &scans[i]
	}
	return result, nil
}

func (s *ScanStorage) ListScans(ctx context.Context, limit, offset int) ([]*models.Scan, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var scans []models.Scan
	if err := s.db.Store().Find(&scans, query); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	result := make([]*models.Scan, len(scans))
	for i := range scans {
		result[i] = &scans[i]
	}
	return result, nil
}

// IncrementProcessed advances the processed counter inside one managed
// transaction so concurrent workers never lose an increment.
func (s *ScanStorage) IncrementProcessed(ctx context.Context, scanID string) (int, error) {
	var processed int

	for attempt := 0; attempt < maxPopRetries; attempt++ {
		err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
			var scan models.Scan
			if err := s.db.Store().TxGet(txn, scanID, &scan); err != nil {
				return err
			}
			scan.ProcessedArticles++
			processed = scan.ProcessedArticles
			return s.db.Store().TxUpsert(txn, scanID, scan)
		})

		switch {
		case err == nil:
			return processed, nil
		case errors.Is(err, badgerdb.ErrConflict):
			time.Sleep(time.Duration(attempt+1) * time.Millisecond)
			continue
		case err == badgerhold.ErrNotFound:
			return 0, fmt.Errorf("scan not found: %s", scanID)
		default:
			return 0, fmt.Errorf("failed to increment processed count: %w", err)
		}
	}

	return 0, fmt.Errorf("increment retries exhausted for scan %s", scanID)
}
