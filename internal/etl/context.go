// Package etl implements the record normalization pipeline: course
// grouping and ordering, context-carrying normalization with optional LLM
// enrichment, and the incremental merge into the structured database.
package etl

import (
	"sort"

	"github.com/campusdash/campusdash/internal/domain"
)

// FallbackCourseID groups records that carry no course identifier at all.
const FallbackCourseID = "common"

// fallbackCourseName is the display label for the fallback course.
const fallbackCourseName = "일반 공지"

// CourseBatch is one course's slice of the raw record batch, deduplicated
// and in processing order, plus the module context needed to normalize it.
type CourseBatch struct {
	CourseID   string
	CourseName string

	// Records are sorted by (module id, position) so that a module's
	// descriptive content is visited before the items it describes.
	Records []domain.RawRecord

	// ModuleMap maps module id to its week/module label, rebuilt fresh
	// from the batch on every run, never persisted.
	ModuleMap map[int64]string
}

// BuildCourseBatches groups the full raw-record batch by course and
// establishes the deterministic processing order within each course.
func BuildCourseBatches(records []domain.RawRecord) []CourseBatch {
	courseNames := collectCourseNames(records)

	grouped := make(map[string][]domain.RawRecord)
	var order []string
	for _, rec := range records {
		cid := resolveCourseID(rec)
		if _, seen := grouped[cid]; !seen {
			order = append(order, cid)
		}
		grouped[cid] = append(grouped[cid], rec)
	}
	sort.Strings(order)

	batches := make([]CourseBatch, 0, len(order))
	for _, cid := range order {
		recs := dedupeRecords(grouped[cid])
		sortRecords(recs)

		name := courseNames[cid]
		if name == "" {
			if cid == FallbackCourseID {
				name = fallbackCourseName
			} else {
				name = "Course " + cid
			}
		}

		batches = append(batches, CourseBatch{
			CourseID:   cid,
			CourseName: name,
			Records:    recs,
			ModuleMap:  buildModuleMap(recs),
		})
	}
	return batches
}

// resolveCourseID resolves a record's course, in order: the payload's
// course_id, then the second tag, then the fallback course. A course
// record is the course: it carries no course_id of its own, so it groups
// under its own entity id rather than falling through to the fallback
// course. That keeps the course's name and syllabus in the batch they
// describe; course records are context-only and never emitted, so the
// extra step does not change output items.
func resolveCourseID(rec domain.RawRecord) string {
	if cid := rec.Payload.CourseID(); cid != "" {
		return cid
	}
	if rec.Category == domain.RawCategoryCourse {
		if id := rec.Payload.EntityID(); id != "" {
			return id
		}
	}
	if len(rec.Tags) > 1 && rec.Tags[1] != "" {
		return rec.Tags[1]
	}
	return FallbackCourseID
}

func collectCourseNames(records []domain.RawRecord) map[string]string {
	names := make(map[string]string)
	for _, rec := range records {
		if rec.Category != domain.RawCategoryCourse {
			continue
		}
		cid := rec.Payload.EntityID()
		if cid == "" {
			continue
		}
		if name := rec.DisplayTitle(); name != "" {
			names[cid] = name
		}
	}
	return names
}

// dedupeRecords drops non-announcement records that share an origin entity
// id with an announcement. Announcements carry the canonical data; the
// "discussion" mirrors of the same entity are noise.
func dedupeRecords(records []domain.RawRecord) []domain.RawRecord {
	announced := make(map[string]bool)
	for _, rec := range records {
		if rec.Category == domain.RawCategoryAnnouncement {
			if id := rec.Payload.EntityID(); id != "" {
				announced[id] = true
			}
		}
	}

	out := make([]domain.RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.Category != domain.RawCategoryAnnouncement {
			if id := rec.Payload.EntityID(); id != "" && announced[id] {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// sortRecords orders a course's records by (module id, position), missing
// values sorting as zero. The order is load-bearing: forward context
// propagation depends on it.
func sortRecords(records []domain.RawRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		mi, mj := records[i].Payload.ModuleID(), records[j].Payload.ModuleID()
		if mi != mj {
			return mi < mj
		}
		return records[i].Payload.Position() < records[j].Payload.Position()
	})
}

func buildModuleMap(records []domain.RawRecord) map[int64]string {
	m := make(map[int64]string)
	for _, rec := range records {
		if rec.Category != domain.RawCategoryWeekModule {
			continue
		}
		if id := rec.Payload.Int64("id"); id != 0 {
			m[id] = rec.Payload.String("name")
		}
	}
	return m
}
