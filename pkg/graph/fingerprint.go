package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint returns a stable hex digest of the graph's structure.
// Two graphs with the same transitions (endpoints and actors) produce
// the same fingerprint regardless of declaration order. Snapshots carry
// it so weight state is never restored onto a different model.
func (g *Graph) Fingerprint() string {
	lines := make([]string, 0, g.edgeCount)
	for from, targets := range g.transitions {
		for to, t := range targets {
			lines = append(lines, from+"->"+to+"|"+string(t.Actor))
		}
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:8])
}
