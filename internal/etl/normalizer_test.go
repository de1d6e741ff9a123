package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdash/campusdash/internal/classify"
	"github.com/campusdash/campusdash/internal/dates"
	"github.com/campusdash/campusdash/internal/domain"
	"github.com/campusdash/campusdash/internal/enrich"
	"github.com/campusdash/campusdash/internal/logger"
)

// fakeEnricher records every chunk it receives and answers via respond.
type fakeEnricher struct {
	calls   [][]enrich.Item
	respond func(chunk []enrich.Item) ([]enrich.Candidate, error)
}

func (f *fakeEnricher) NormalizeItems(_ context.Context, _ string, chunk []enrich.Item) ([]enrich.Candidate, error) {
	f.calls = append(f.calls, chunk)
	if f.respond != nil {
		return f.respond(chunk)
	}
	// Default: echo every item back unchanged.
	cands := make([]enrich.Candidate, 0, len(chunk))
	for _, it := range chunk {
		cands = append(cands, enrich.Candidate{
			OriginalID: it.OriginalID,
			Category:   domain.CategoryMaterial,
			Title:      it.Title,
		})
	}
	return cands, nil
}

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newTestNormalizer(enricher Enricher, chunkSize int) *Normalizer {
	return NewNormalizer(
		classify.New(),
		dates.NewResolverAt(testClock()),
		enricher,
		chunkSize,
		logger.NewNop(),
	)
}

func TestNormalizeCourseDeterministic(t *testing.T) {
	batch := CourseBatch{
		CourseID:   "C1",
		CourseName: "OS",
		Records: []domain.RawRecord{
			{
				ID:       "course-c1",
				Category: domain.RawCategoryCourse,
				Title:    "OS",
				Payload:  domain.Payload{"id": "C1"},
			},
			{
				ID:       "ann-1",
				Category: domain.RawCategoryAnnouncement,
				Title:    "중간고사 안내",
				URL:      "https://canvas.example/ann/1",
				Payload: domain.Payload{
					"course_id": "C1",
					"message":   "<p>시험은 <b>5월 1일</b>에 진행합니다.</p>",
					"due_at":    "2025-05-01T23:59:00Z",
					"posted_at": "2025-04-20T09:00:00Z",
				},
			},
		},
	}

	n := newTestNormalizer(nil, 0)
	items := n.NormalizeCourse(context.Background(), batch)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "ann-1", item.OriginalID)
	assert.Equal(t, domain.CategoryNotice, item.Category)
	assert.Equal(t, "중간고사 안내", item.Title)
	assert.Equal(t, "C1", item.CourseID)
	assert.Equal(t, "OS", item.CourseName)
	assert.Equal(t, "2025-05-01 23:59", item.DueDate)
	assert.Equal(t, "2025-04-20 09:00", item.PostedDate)
	assert.Equal(t, "2025-05-01 23:59", item.InferredDate)
	assert.Equal(t, "시험은 5월 1일에 진행합니다.", item.ContentClean)
	assert.Equal(t, "https://canvas.example/ann/1", item.URL)
	assert.False(t, item.IsActionRequired)
}

func TestNormalizeCourseTypeHintBeatsTitleKeyword(t *testing.T) {
	batch := CourseBatch{
		CourseID:   "C1",
		CourseName: "OS",
		Records: []domain.RawRecord{
			{
				ID:       "item-1",
				Category: domain.RawCategoryModuleItem,
				Title:    "Week 3 Notice",
				Payload:  domain.Payload{"course_id": "C1", "type": domain.TypeHintAssignment},
			},
		},
	}

	n := newTestNormalizer(nil, 0)
	items := n.NormalizeCourse(context.Background(), batch)
	require.Len(t, items, 1)
	assert.Equal(t, domain.CategoryAssignment, items[0].Category)
	assert.True(t, items[0].IsActionRequired)
	assert.Equal(t, 3, items[0].WeekIndex)
}

func TestNormalizeCourseInfersDateFromText(t *testing.T) {
	batch := CourseBatch{
		CourseID:   "C1",
		CourseName: "OS",
		Records: []domain.RawRecord{
			{
				ID:       "ann-2",
				Category: domain.RawCategoryAnnouncement,
				Title:    "보고서 제출",
				Payload: domain.Payload{
					"course_id": "C1",
					"message":   "보고서는 내일 23:00까지 제출하세요.",
					"posted_at": "2025-03-10T10:00:00Z",
				},
			},
		},
	}

	n := newTestNormalizer(nil, 0)
	items := n.NormalizeCourse(context.Background(), batch)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].DueDate)
	// "내일" resolves against posted_at, not against the present run time.
	assert.Equal(t, "2025-03-11 23:00", items[0].InferredDate)
}

func TestNormalizeEnrichedModuleContextPropagation(t *testing.T) {
	batch := CourseBatch{
		CourseID:   "C1",
		CourseName: "OS",
		ModuleMap:  map[int64]string{1: "1주차", 2: "2주차"},
		Records: []domain.RawRecord{
			{
				ID:       "page-1",
				Category: domain.RawCategoryModuleItem,
				Title:    "Week 1 Overview",
				Payload: domain.Payload{
					"course_id":          "C1",
					"type":               domain.TypeHintPage,
					"_context_module_id": float64(1),
					"position":           float64(1),
					"body":               "Scheduling basics and the lab walkthrough.",
				},
			},
			{
				ID:       "hw-1",
				Category: domain.RawCategoryModuleItem,
				Title:    "Lab 1",
				Payload: domain.Payload{
					"course_id":          "C1",
					"type":               domain.TypeHintAssignment,
					"_context_module_id": float64(1),
					"position":           float64(2),
				},
			},
			{
				ID:       "hw-2",
				Category: domain.RawCategoryModuleItem,
				Title:    "Lab 2",
				Payload: domain.Payload{
					"course_id":          "C1",
					"type":               domain.TypeHintAssignment,
					"_context_module_id": float64(2),
					"position":           float64(1),
				},
			},
		},
	}

	fake := &fakeEnricher{}
	n := newTestNormalizer(fake, 10)
	n.NormalizeCourse(context.Background(), batch)

	require.Len(t, fake.calls, 1)
	chunk := fake.calls[0]
	require.Len(t, chunk, 3)

	// The page does not see its own content as module context.
	assert.NotContains(t, chunk[0].BodyText, "=== MODULE CONTEXT ===")

	// The next item in the same module does.
	assert.Contains(t, chunk[1].BodyText, "Week 1 Overview")
	assert.Contains(t, chunk[1].BodyText, "Scheduling basics")

	// A module transition resets the buffer.
	assert.NotContains(t, chunk[2].BodyText, "Scheduling basics")
}

func TestNormalizeEnrichedChunksAndSurvivesFailure(t *testing.T) {
	var records []domain.RawRecord
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, domain.RawRecord{
			ID:       id,
			Category: domain.RawCategoryModuleItem,
			Title:    "item " + id,
			Payload:  domain.Payload{"course_id": "C1"},
		})
	}
	batch := CourseBatch{CourseID: "C1", CourseName: "OS", Records: records}

	fail := true
	fake := &fakeEnricher{}
	fake.respond = func(chunk []enrich.Item) ([]enrich.Candidate, error) {
		// First chunk fails, the rest succeed.
		if fail {
			fail = false
			return nil, errors.New("model unavailable")
		}
		cands := make([]enrich.Candidate, 0, len(chunk))
		for _, it := range chunk {
			cands = append(cands, enrich.Candidate{OriginalID: it.OriginalID, Category: domain.CategoryMaterial})
		}
		return cands, nil
	}

	n := newTestNormalizer(fake, 2)
	items := n.NormalizeCourse(context.Background(), batch)

	require.Len(t, fake.calls, 3)
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.OriginalID)
	}
	assert.Equal(t, []string{"c", "d", "e"}, got)
}

func TestAcceptCandidateValidation(t *testing.T) {
	rec := domain.RawRecord{
		ID:       "hw-1",
		Category: domain.RawCategoryModuleItem,
		Title:    "Lab 1",
		Payload: domain.Payload{
			"course_id": "C1",
			"type":      domain.TypeHintAssignment,
			"body":      "Submit via Canvas.",
			"due_at":    "2025-03-20T23:59:00Z",
		},
	}
	batch := CourseBatch{CourseID: "C1", CourseName: "OS", Records: []domain.RawRecord{rec}}
	byID := map[string]domain.RawRecord{rec.ID: rec}

	n := newTestNormalizer(nil, 0)

	t.Run("unknown original id is discarded", func(t *testing.T) {
		_, ok := n.acceptCandidate(batch, byID, enrich.Candidate{OriginalID: "ghost"})
		assert.False(t, ok)
	})

	t.Run("invalid category is recomputed", func(t *testing.T) {
		item, ok := n.acceptCandidate(batch, byID, enrich.Candidate{
			OriginalID: "hw-1",
			Category:   "homework_thing",
		})
		require.True(t, ok)
		assert.Equal(t, domain.CategoryAssignment, item.Category)
		assert.True(t, item.IsActionRequired)
	})

	t.Run("structured due date is authoritative", func(t *testing.T) {
		item, ok := n.acceptCandidate(batch, byID, enrich.Candidate{
			OriginalID: "hw-1",
			Category:   domain.CategoryAssignment,
			DueDate:    "2025-04-01 12:00",
		})
		require.True(t, ok)
		assert.Equal(t, "2025-03-20 23:59", item.DueDate)
	})

	t.Run("out of range model date is dropped", func(t *testing.T) {
		item, ok := n.acceptCandidate(batch, byID, enrich.Candidate{
			OriginalID:   "hw-1",
			Category:     domain.CategoryAssignment,
			InferredDate: "2031-01-01 00:00",
		})
		require.True(t, ok)
		// Falls back to the structured due date.
		assert.Equal(t, "2025-03-20 23:59", item.InferredDate)
	})

	t.Run("empty fields are backfilled from the record", func(t *testing.T) {
		item, ok := n.acceptCandidate(batch, byID, enrich.Candidate{
			OriginalID: "hw-1",
			Category:   domain.CategoryAssignment,
		})
		require.True(t, ok)
		assert.Equal(t, "Lab 1", item.Title)
		assert.Equal(t, "Submit via Canvas.", item.ContentClean)
	})
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", stripHTML("<div><p>Hello</p>\n<p>world</p></div>"))
	assert.Equal(t, "plain text", stripHTML("  plain\n\ttext  "))
	assert.Equal(t, "", stripHTML(""))
}
