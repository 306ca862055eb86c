package review

import (
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

// BuildQueue picks up to size articles from candidates in random order.
// A non-zero seed makes the order reproducible; size <= 0 keeps every candidate.
func BuildQueue(candidates []string, size int, seed uint64) []string {
	seen := make(map[string]struct{}, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		names = append(names, c)
	}
	// sorted first so a fixed seed does not depend on directory listing order
	slices.Sort(names)

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	if size > 0 && len(names) > size {
		names = names[:size]
	}
	return names
}
