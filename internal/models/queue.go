package models

import "time"

// QueueStatus is the lifecycle state of a scan's work queue.
type QueueStatus string

const (
	QueueStatusAwaiting   QueueStatus = "awaiting"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
)

// ScanQueue is the per-scan ordered list of article ids awaiting processing.
// The list only ever shrinks: ids are removed from the front by the atomic
// pop operation until the queue drains, at which point the status becomes
// completed. It is never refilled.
type ScanQueue struct {
	ScanID    string      `json:"scan_id"`
	Status    QueueStatus `json:"status" badgerhold:"index"`
	List      []string    `json:"list"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewScanQueue creates a queue seeded with article ids in discovery order.
// An empty queue is created already completed so empty scans terminate
// cleanly without a worker launch.
func NewScanQueue(scanID string, articleIDs []string) *ScanQueue {
	now := time.Now().UTC()
	status := QueueStatusProcessing
	if len(articleIDs) == 0 {
		status = QueueStatusCompleted
	}
	return &ScanQueue{
		ScanID:    scanID,
		Status:    status,
		List:      articleIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
