// Package fingerprint provides 64-bit SimHash fingerprints for watch-mode
// change detection. Unlike an exact content hash, two snapshots that differ
// only in a timestamp or a rotated ad land within a small Hamming distance,
// so the watcher can tell material changes from noise.
package fingerprint

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Text computes a SimHash over word-level tokens of the captured content.
// Empty or whitespace-only input fingerprints to 0.
func Text(content string) uint64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(strings.ToLower(word)))
		sum := h.Sum64()

		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Changed reports whether two fingerprints differ by more than the threshold.
// A zero previous fingerprint (no prior observation) never counts as a change.
func Changed(prev, cur uint64, threshold int) bool {
	if prev == 0 {
		return false
	}
	return Distance(prev, cur) > threshold
}
