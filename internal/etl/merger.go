package etl

import (
	"github.com/google/uuid"

	"github.com/campusdash/campusdash/internal/domain"
)

// syntheticKeyPrefix marks merge keys assigned to items that arrived
// without an original_id. The prefix keeps them from ever colliding with a
// real content-hash id.
const syntheticKeyPrefix = "noid-"

// Merge combines newly normalized items with the previously persisted
// database. For any original_id present in both inputs the new version
// wins; items unique to either side are retained; the result never
// contains two items with the same original_id. Items without an
// original_id get a synthetic key unique to this call, so repeated runs
// against an unchanged raw log are content no-ops.
func Merge(existing, incoming []domain.NormalizedItem) []domain.NormalizedItem {
	merged := make([]domain.NormalizedItem, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	add := func(item domain.NormalizedItem) {
		if item.OriginalID == "" {
			item.OriginalID = syntheticKeyPrefix + uuid.NewString()
		}
		if pos, ok := index[item.OriginalID]; ok {
			merged[pos] = item
			return
		}
		index[item.OriginalID] = len(merged)
		merged = append(merged, item)
	}

	for _, item := range existing {
		add(item)
	}
	for _, item := range incoming {
		add(item)
	}
	return merged
}
