package model

import "time"

// TTSCacheEntry maps a normalized, scope- and locale-qualified text key to
// the durable URL of its synthesized audio.  Rows are append-only.
type TTSCacheEntry struct {
	CacheKey  string    `json:"cache_key"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
