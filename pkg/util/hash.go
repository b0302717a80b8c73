package util

import "hash/fnv"

// ContentHash fingerprints message content for duplicate detection. FNV-1a is
// enough here; collisions only inflate the duplicate ratio marginally.
func ContentHash(content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}
