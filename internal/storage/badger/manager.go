package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
	"github.com/reelscan/reelscan/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	scan    interfaces.ScanStorage
	queue   interfaces.QueueStorage
	article interfaces.ArticleStorage
	feed    interfaces.FeedStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		scan:    NewScanStorage(db, logger),
		queue:   NewQueueStorage(db, logger),
		article: NewArticleStorage(db, logger),
		feed:    NewFeedStorage(db, logger),
		kv:      NewKVStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ScanStorage returns the Scan storage interface
func (m *Manager) ScanStorage() interfaces.ScanStorage {
	return m.scan
}

// QueueStorage returns the Queue storage interface
func (m *Manager) QueueStorage() interfaces.QueueStorage {
	return m.queue
}

// ArticleStorage returns the Article storage interface
func (m *Manager) ArticleStorage() interfaces.ArticleStorage {
	return m.article
}

// FeedStorage returns the Feed storage interface
func (m *Manager) FeedStorage() interfaces.FeedStorage {
	return m.feed
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
