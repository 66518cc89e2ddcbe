package utils

import "hash/fnv"

// Fingerprint hashes the parts in order, keeping ("ab","c") and ("a","bc") apart.
func Fingerprint(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
