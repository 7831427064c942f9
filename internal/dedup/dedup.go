// Package dedup partitions feed entries into new and already-known items.
// It is pure: no I/O, and the same inputs always produce the same partition,
// which lets discovery re-run on every pipeline invocation without side
// effects.
package dedup

import "signalwatch/internal/feed"

// Partition splits entries into those not present in known and those that
// are. Matching is exact on the source-native video identifier. Duplicate
// identifiers within a single batch are collapsed to their first occurrence.
// Input order is preserved in both outputs.
func Partition(entries []feed.Entry, known map[string]struct{}) (fresh, seen []feed.Entry) {
	if len(entries) == 0 {
		return nil, nil
	}
	inBatch := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := inBatch[entry.VideoID]; dup {
			continue
		}
		inBatch[entry.VideoID] = struct{}{}
		if _, ok := known[entry.VideoID]; ok {
			seen = append(seen, entry)
		} else {
			fresh = append(fresh, entry)
		}
	}
	return fresh, seen
}
