// Package version centralizes component version strings for cache keys.
//
// Bumping a component's version changes every cache key that embeds it, which
// invalidates stale entries without touching Redis directly. Bump Tools when
// a tool's output format changes; bump Prompt when the system instruction
// templates change.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComponentVersions holds the version strings for the cache-relevant parts of
// the assistant. Increment before deploying a change to that component.
var ComponentVersions = struct {
	Tools  string
	Prompt string
}{
	Tools:  "v1.0",
	Prompt: "v1.0",
}

// SearchCacheKey builds a version-aware Redis key for a web-search query.
// The query is hashed so keys stay fixed-length and safe regardless of what
// the user typed.
func SearchCacheKey(query string) string {
	hasher := sha256.New()
	hasher.Write([]byte(query))
	queryHash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("searchcache:%s:tv%s", queryHash, ComponentVersions.Tools)
}
