package structure

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// hashLen is the number of hex characters kept from the full digest. Twelve
// characters (48 bits) keeps collisions negligible for any realistic number
// of anchors while staying readable in logs and output values.
const hashLen = 12

// shortHash derives a stable, platform-independent short identifier from the
// given fields. Floats are canonicalized to 8 decimal places so the same
// anchor always hashes identically.
func shortHash(fields ...interface{}) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		switch v := f.(type) {
		case float64:
			parts[i] = fmt.Sprintf("%.8f", v)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:hashLen]
}

func joinSorted(items []string) string {
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
