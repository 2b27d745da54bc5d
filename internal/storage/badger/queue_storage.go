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

// maxPopRetries bounds the conflict-retry loop in PopNext. Parallelism is
// capped well below this, so hitting the bound indicates a bug, not load.
const maxPopRetries = 32

var errQueueMissing = errors.New("queue missing")

// QueueStorage implements the QueueStorage interface for Badger.
// PopNext runs inside a single managed Badger transaction so that concurrent
// worker chains never receive the same article id twice and never lose one.
type QueueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QueueStorage) CreateQueue(ctx context.Context, scanID string, articleIDs []string) (*models.ScanQueue, error) {
	if scanID == "" {
		return nil, fmt.Errorf("scan ID is required")
	}

	queue := models.NewScanQueue(scanID, articleIDs)
	if err := s.SaveQueue(ctx, queue); err != nil {
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}

	s.logger.Debug().
		Str("scan_id", scanID).
		Int("articles", len(articleIDs)).
		Msg("Work queue created")
	return queue, nil
}

func (s *QueueStorage) SaveQueue(ctx context.Context, queue *models.ScanQueue) error {
	if queue.ScanID == "" {
		return fmt.Errorf("scan ID is required")
	}
	if err := s.db.Store().Upsert(queue.ScanID, *queue); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

func (s *QueueStorage) GetQueue(ctx context.Context, scanID string) (*models.ScanQueue, error) {
	var queue models.ScanQueue
	if err := s.db.Store().Get(scanID, &queue); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return &queue, nil
}

// PopNext atomically removes and returns the front article id. A missing
// queue behaves as empty: the scan never reached ingestion, so there is
// nothing to process. An empty queue is marked completed (idempotent).
func (s *QueueStorage) PopNext(ctx context.Context, scanID string) (string, bool, error) {
	var popped string
	var ok bool

	for attempt := 0; attempt < maxPopRetries; attempt++ {
		popped, ok = "", false

		err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
			var queue models.ScanQueue
			if err := s.db.Store().TxGet(txn, scanID, &queue); err != nil {
				if err == badgerhold.ErrNotFound {
					return errQueueMissing
				}
				return err
			}

			now := time.Now().UTC()
			if len(queue.List) == 0 {
				if queue.Status == models.QueueStatusCompleted {
					return nil
				}
				queue.Status = models.QueueStatusCompleted
				queue.UpdatedAt = now
				return s.db.Store().TxUpsert(txn, scanID, queue)
			}

			popped = queue.List[0]
			ok = true
			queue.List = queue.List[1:]
			if len(queue.List) == 0 {
				queue.Status = models.QueueStatusCompleted
			} else {
				queue.Status = models.QueueStatusProcessing
			}
			queue.UpdatedAt = now
			return s.db.Store().TxUpsert(txn, scanID, queue)
		})

		switch {
		case err == nil:
			return popped, ok, nil
		case errors.Is(err, errQueueMissing):
			return "", false, nil
		case errors.Is(err, badgerdb.ErrConflict):
			// Another worker popped concurrently; re-read and retry.
			time.Sleep(time.Duration(attempt+1) * time.Millisecond)
			continue
		default:
			return "", false, fmt.Errorf("failed to pop queue: %w", err)
		}
	}

	return "", false, fmt.Errorf("pop retries exhausted for scan %s", scanID)
}

func (s *QueueStorage) Length(ctx context.Context, scanID string) (int, error) {
	queue, err := s.GetQueue(ctx, scanID)
	if err != nil {
		return 0, err
	}
	if queue == nil {
		return 0, nil
	}
	return len(queue.List), nil
}

func (s *QueueStorage) CancelQueue(ctx context.Context, scanID string) error {
	queue, err := s.GetQueue(ctx, scanID)
	if err != nil {
		return err
	}
	if queue == nil {
		return nil
	}

	queue.List = nil
	queue.Status = models.QueueStatusCompleted
	queue.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(scanID, *queue); err != nil {
		return fmt.Errorf("failed to cancel queue: %w", err)
	}

	s.logger.Debug().Str("scan_id", scanID).Msg("Work queue cancelled")
	return nil
}

func (s *QueueStorage) MarkProcessing(ctx context.Context, scanID string) error {
	queue, err := s.GetQueue(ctx, scanID)
	if err != nil {
		return err
	}
	if queue == nil {
		return fmt.Errorf("no queue for scan %s", scanID)
	}

	queue.Status = models.QueueStatusProcessing
	queue.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(scanID, *queue); err != nil {
		return fmt.Errorf("failed to mark queue processing: %w", err)
	}
	return nil
}
