package repository

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The default utf8mb4 collation ignores case and accents, which would make
// "Zoë" and "Zoe" (or أحمد and احمد) share one cache row.
func TestMigration_CacheKeyComparesBinary(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)

	col := regexp.MustCompile(`(?m)^\s*cache_key\s+(.+)$`).FindSubmatch(schema)
	require.NotNil(t, col, "tts_cache.cache_key column not found")
	assert.Regexp(t, `(?i)COLLATE\s+utf8mb4_bin|VARBINARY`, string(col[1]))
}
