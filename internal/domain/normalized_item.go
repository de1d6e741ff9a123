package domain

// Normalized category constants. Category is always one of this closed set.
const (
	CategoryAssignment = "assignment"
	CategoryQuiz       = "quiz"
	CategoryNotice     = "notice"
	CategoryMaterial   = "material"
	CategoryVideo      = "video"
)

// DateTimeLayout is the normalized form for due_date and inferred_date
// values in the structured database.
const DateTimeLayout = "2006-01-02 15:04"

// NormalizedItem is the structured database's unit of storage, produced from
// one RawRecord plus accumulated course/module context.
type NormalizedItem struct {
	// OriginalID equals the originating RawRecord's ID and is the
	// dedup/merge key. The UI's completion-status side table is keyed by
	// it, so it must stay stable across runs.
	OriginalID string `json:"original_id"`

	Category   string `json:"category"`
	Title      string `json:"title"`
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`

	// WeekIndex is the course week the item belongs to; 0 means
	// unknown/common.
	WeekIndex int `json:"week_index"`

	// DueDate is a hard deadline in "YYYY-MM-DD HH:MM" form, when known.
	DueDate string `json:"due_date,omitempty"`

	// PostedDate is the original posting time, normalized.
	PostedDate string `json:"posted_date,omitempty"`

	// InferredDate is a heuristically resolved date when no hard
	// deadline exists (e.g. relative-text dates).
	InferredDate string `json:"inferred_date,omitempty"`

	// ContentClean is a bounded-length HTML-stripped body excerpt.
	ContentClean string `json:"content_clean"`

	URL string `json:"url,omitempty"`

	// IsActionRequired is true iff Category is assignment or quiz.
	IsActionRequired bool `json:"is_action_required"`
}

// ActionRequired reports whether a category demands user action.
func ActionRequired(category string) bool {
	return category == CategoryAssignment || category == CategoryQuiz
}

// ValidCategory reports whether category belongs to the closed set.
func ValidCategory(category string) bool {
	switch category {
	case CategoryAssignment, CategoryQuiz, CategoryNotice, CategoryMaterial, CategoryVideo:
		return true
	default:
		return false
	}
}
