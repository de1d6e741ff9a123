package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdash/campusdash/internal/domain"
)

func TestMergeNewAndUpdated(t *testing.T) {
	existing := []domain.NormalizedItem{
		{OriginalID: "a", Title: "old title", Category: domain.CategoryMaterial},
		{OriginalID: "b", Title: "untouched", Category: domain.CategoryNotice},
	}
	incoming := []domain.NormalizedItem{
		{OriginalID: "a", Title: "new title", Category: domain.CategoryAssignment},
		{OriginalID: "c", Title: "brand new", Category: domain.CategoryQuiz},
	}

	merged := Merge(existing, incoming)
	require.Len(t, merged, 3)

	byID := make(map[string]domain.NormalizedItem)
	for _, item := range merged {
		byID[item.OriginalID] = item
	}
	assert.Equal(t, "new title", byID["a"].Title)
	assert.Equal(t, domain.CategoryAssignment, byID["a"].Category)
	assert.Equal(t, "untouched", byID["b"].Title)
	assert.Equal(t, "brand new", byID["c"].Title)
}

func TestMergeKeepsExistingPositions(t *testing.T) {
	existing := []domain.NormalizedItem{
		{OriginalID: "a"},
		{OriginalID: "b"},
	}
	incoming := []domain.NormalizedItem{
		{OriginalID: "b", Title: "updated"},
		{OriginalID: "c"},
	}

	merged := Merge(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].OriginalID)
	assert.Equal(t, "b", merged[1].OriginalID)
	assert.Equal(t, "updated", merged[1].Title)
	assert.Equal(t, "c", merged[2].OriginalID)
}

func TestMergeIdempotent(t *testing.T) {
	incoming := []domain.NormalizedItem{
		{OriginalID: "a", Title: "one"},
		{OriginalID: "b", Title: "two"},
	}

	first := Merge(nil, incoming)
	second := Merge(first, incoming)
	assert.Equal(t, first, second)
}

func TestMergeNeverDuplicatesIDs(t *testing.T) {
	incoming := []domain.NormalizedItem{
		{OriginalID: "a"},
		{OriginalID: "a", Title: "later copy wins"},
	}

	merged := Merge(nil, incoming)
	require.Len(t, merged, 1)
	assert.Equal(t, "later copy wins", merged[0].Title)
}

func TestMergeAssignsSyntheticKeys(t *testing.T) {
	incoming := []domain.NormalizedItem{
		{Title: "no id one"},
		{Title: "no id two"},
	}

	merged := Merge(nil, incoming)
	require.Len(t, merged, 2)
	assert.True(t, strings.HasPrefix(merged[0].OriginalID, "noid-"))
	assert.True(t, strings.HasPrefix(merged[1].OriginalID, "noid-"))
	assert.NotEqual(t, merged[0].OriginalID, merged[1].OriginalID)
}
