package cache

import "time"

// Default TTLs: 30 days for metadata, 7 days for web pages.
const (
	TTLMetadata = 30 * 24 * time.Hour
	TTLWebPage  = 7 * 24 * time.Hour
)
