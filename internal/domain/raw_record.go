// Package domain defines the record types flowing through the ETL pipeline:
// RawRecord as appended by the crawler, and NormalizedItem as stored in the
// structured database.
package domain

// RawRecord represents one crawled entity exactly as the crawler wrote it to
// the append-only log. Records are never mutated after being appended.
// Multiple raw records may describe the same logical entity reached via
// different origin API endpoints.
type RawRecord struct {
	// ID is a stable content hash of the entity id + entity kind,
	// globally unique within a source.
	ID     string `json:"id"`
	Source string `json:"source"`

	// Category is the raw origin-assigned category string
	// (e.g. "announcement", "module_item", "course").
	Category string `json:"category"`

	// Tags is an ordered list; index 1, when present, is a fallback
	// course identifier.
	Tags []string `json:"tags,omitempty"`

	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	FetchedAt string `json:"fetched_at,omitempty"`

	// Semester is an optional semester label injected at write time
	// (e.g. "2025-2").
	Semester string `json:"semester,omitempty"`

	// Payload holds the origin system's native fields. Access goes
	// through the Payload accessors so the messy origin schema stays
	// isolated to one translation layer.
	Payload Payload `json:"payload,omitempty"`
}

// Raw origin category constants.
const (
	RawCategoryCourse       = "course"
	RawCategoryAnnouncement = "announcement"
	RawCategoryDiscussion   = "discussion_raw"
	RawCategorySyllabus     = "syllabus"
	RawCategoryWeekModule   = "week_module"
	RawCategoryModuleItem   = "module_item"
	RawCategoryFileMeta     = "file_meta"
	RawCategoryExternalTab  = "external_tool_tab"
)

// Origin item type hints (Canvas module item types).
const (
	TypeHintAssignment   = "Assignment"
	TypeHintQuiz         = "Quiz"
	TypeHintExternalTool = "ExternalTool"
	TypeHintPage         = "Page"
	TypeHintFile         = "File"
	TypeHintSubHeader    = "SubHeader"
)

// DisplayTitle returns the record title, falling back to the payload's
// title or name fields.
func (r RawRecord) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	if t := r.Payload.String("title"); t != "" {
		return t
	}
	return r.Payload.String("name")
}
