package etl

import (
	"context"
	"fmt"

	"github.com/campusdash/campusdash/internal/domain"
	"github.com/campusdash/campusdash/internal/logger"
	"github.com/campusdash/campusdash/internal/storage"
)

// Stats summarizes a single pipeline run.
type Stats struct {
	RawRecords int `json:"raw_records"`
	Courses    int `json:"courses"`
	NewItems   int `json:"new_items"`
	TotalItems int `json:"total_items"`
}

// Pipeline runs the full normalization pass: read the raw log, normalize
// course by course, merge into the structured database, write it back.
type Pipeline struct {
	rawLogPath string
	store      *storage.ItemStore
	normalizer *Normalizer
	log        logger.Logger
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(rawLogPath string, store *storage.ItemStore, normalizer *Normalizer, log logger.Logger) *Pipeline {
	return &Pipeline{
		rawLogPath: rawLogPath,
		store:      store,
		normalizer: normalizer,
		log:        log,
	}
}

// Run executes one full pipeline pass. Re-running over the same raw log is
// idempotent: items are keyed by original id and updated in place.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	records, err := storage.ReadRawLog(p.rawLogPath, p.log)
	if err != nil {
		return Stats{}, fmt.Errorf("load raw records: %w", err)
	}

	// A missing or unreadable structured database is a cold start, not a
	// fatal error; the merge base is simply empty.
	existing, err := p.store.Load()
	if err != nil {
		if storage.IsNotExist(err) {
			p.log.Info("no structured database yet, starting cold",
				logger.String("path", p.store.Path()))
		} else {
			p.log.Warn("structured database unreadable, treating as empty",
				logger.String("path", p.store.Path()),
				logger.Error(err))
		}
		existing = nil
	}

	batches := BuildCourseBatches(records)

	var fresh []domain.NormalizedItem
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}

		items := p.normalizer.NormalizeCourse(ctx, batch)
		p.log.Info("normalized course",
			logger.String("course_id", batch.CourseID),
			logger.String("course_name", batch.CourseName),
			logger.Int("records", len(batch.Records)),
			logger.Int("items", len(items)))
		fresh = append(fresh, items...)
	}

	merged := Merge(existing, fresh)
	if err := p.store.Save(merged); err != nil {
		return Stats{}, fmt.Errorf("save structured database: %w", err)
	}

	stats := Stats{
		RawRecords: len(records),
		Courses:    len(batches),
		NewItems:   len(fresh),
		TotalItems: len(merged),
	}
	p.log.Info("pipeline run complete",
		logger.Int("raw_records", stats.RawRecords),
		logger.Int("courses", stats.Courses),
		logger.Int("new_items", stats.NewItems),
		logger.Int("total_items", stats.TotalItems))
	return stats, nil
}
