package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Scope separates announcement families that share one cache table.
type Scope string

const (
	ScopePickup  Scope = "pickup"
	ScopeCallout Scope = "callout"
)

// MaxTextRunes bounds normalized text so every cache key fits the
// tts_cache.cache_key column.
const MaxTextRunes = 400

// NormalizeText trims text and collapses every whitespace run to a single
// space, so cosmetic differences map to the same cache entry.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CacheKey returns the namespaced key for already-normalized text.
func CacheKey(scope Scope, locale, normalized string) string {
	return string(scope) + ":" + locale + ":" + normalized
}

// ObjectPath derives the storage path from a hash of the cache key (not
// of the audio), so every writer of the same key targets the same object.
func ObjectPath(scope Scope, locale, cacheKey, ext string) string {
	sum := sha256.Sum256([]byte(cacheKey))
	return string(scope) + "/" + locale + "/" + hex.EncodeToString(sum[:]) + "." + ext
}
