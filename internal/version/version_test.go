package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchCacheKey(t *testing.T) {
	key := SearchCacheKey("latest Lakers score")

	assert.True(t, strings.HasPrefix(key, "searchcache:"))
	assert.True(t, strings.HasSuffix(key, ":tv"+ComponentVersions.Tools))
	// Raw query text never appears in the key.
	assert.NotContains(t, key, "Lakers")

	// Deterministic for the same query, distinct across queries.
	assert.Equal(t, key, SearchCacheKey("latest Lakers score"))
	assert.NotEqual(t, key, SearchCacheKey("latest Celtics score"))
}
