// Package storage handles the flat-file inputs and outputs of the pipeline:
// the append-only raw record log, the structured database file, and the
// completion-status side table.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/campusdash/campusdash/internal/domain"
	"github.com/campusdash/campusdash/internal/logger"
)

// maxLineSize bounds a single raw log line. Canvas page bodies can run
// large, so the scanner buffer is generous.
const maxLineSize = 4 * 1024 * 1024

// ReadRawLog reads the newline-delimited raw record log in full. Malformed
// lines are skipped and counted, never fatal; an unreadable file is a fatal
// configuration error for the run.
func ReadRawLog(path string, log logger.Logger) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw record log %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []domain.RawRecord
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec domain.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			log.Debug("skipping malformed raw record line", logger.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan raw record log %s: %w", path, err)
	}

	if skipped > 0 {
		log.Warn("skipped malformed raw record lines",
			logger.String("path", path),
			logger.Int("skipped", skipped))
	}
	return records, nil
}
