package permission

import "strings"

// covered reports whether a single match key is satisfied by some
// approved pattern: an exact match, or a prefix match when the pattern
// ends in "*". The predicate is total and independent of the order
// patterns were approved in.
func covered(approved map[string]bool, key string) bool {
	if approved[key] {
		return true
	}
	for pattern := range approved {
		if strings.HasSuffix(pattern, "*") &&
			strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// coveredAll reports whether every key is covered by the approved set.
// An empty key list is vacuously covered.
func coveredAll(approved map[string]bool, keys []string) bool {
	for _, key := range keys {
		if !covered(approved, key) {
			return false
		}
	}
	return true
}
