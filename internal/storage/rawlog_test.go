package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdash/campusdash/internal/logger"
)

func writeRawLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw_records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRawLog(t *testing.T) {
	path := writeRawLog(t, `{"id":"a","category":"announcement","payload":{"course_id":"C1"}}
{"id":"b","category":"module_item","tags":["canvas","C1"]}
`)

	records, err := ReadRawLog(path, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "C1", records[0].Payload.CourseID())
	assert.Equal(t, []string{"canvas", "C1"}, records[1].Tags)
}

func TestReadRawLogSkipsMalformedLines(t *testing.T) {
	path := writeRawLog(t, `{"id":"a","category":"announcement"}
not json at all
{"id":"b",
{"id":"c","category":"syllabus"}

`)

	records, err := ReadRawLog(path, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "c", records[1].ID)
}

func TestReadRawLogMissingFile(t *testing.T) {
	_, err := ReadRawLog(filepath.Join(t.TempDir(), "nope.jsonl"), logger.NewNop())
	assert.Error(t, err)
}

func TestReadRawLogEmptyFile(t *testing.T) {
	path := writeRawLog(t, "")

	records, err := ReadRawLog(path, logger.NewNop())
	require.NoError(t, err)
	assert.Empty(t, records)
}
