package models

// ScanSettings is the typed configuration read by the auto-trigger and used
// as defaults for manually started scans. Stored as a single KV document and
// validated at the boundary where it is read or updated.
type ScanSettings struct {
	Enabled         bool     `json:"enabled"`
	IntervalMinutes int      `json:"interval_minutes" validate:"min=5,max=1440"`
	Parallelism     int      `json:"parallelism" validate:"min=1,max=16"`
	DaysBack        int      `json:"days_back" validate:"min=1,max=90"`
	FeedCount       int      `json:"feed_count" validate:"min=0"`
	FilterTags      []string `json:"filter_tags"`

	DigestEnabled    bool   `json:"digest_enabled"`
	DigestWebhookURL string `json:"digest_webhook_url" validate:"omitempty,url"`
	DigestLimit      int    `json:"digest_limit" validate:"min=1,max=50"`
}

// DefaultScanSettings returns the settings used before any have been saved.
func DefaultScanSettings() ScanSettings {
	return ScanSettings{
		Enabled:         false,
		IntervalMinutes: 60,
		Parallelism:     3,
		DaysBack:        7,
		FeedCount:       0,
		DigestEnabled:   false,
		DigestLimit:     10,
	}
}

// ToScanOptions converts settings into the immutable options for one scan.
func (s ScanSettings) ToScanOptions() ScanOptions {
	return ScanOptions{
		FeedCount:   s.FeedCount,
		DaysBack:    s.DaysBack,
		Parallelism: s.Parallelism,
		FilterTags:  s.FilterTags,
	}
}
