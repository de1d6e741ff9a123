package etl

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/campusdash/campusdash/internal/classify"
	"github.com/campusdash/campusdash/internal/dates"
	"github.com/campusdash/campusdash/internal/domain"
	"github.com/campusdash/campusdash/internal/enrich"
	"github.com/campusdash/campusdash/internal/logger"
)

// Content and context length bounds, in runes.
const (
	maxContentLen       = 500
	maxCourseContextLen = 2000
	courseContextPerLen = 1000
	moduleExcerptLen    = 500
)

// Enricher is the external LLM collaborator. Its output is advisory: every
// candidate goes through the validation/backfill pass before persistence.
type Enricher interface {
	NormalizeItems(ctx context.Context, courseName string, chunk []enrich.Item) ([]enrich.Candidate, error)
}

// Normalizer turns a course's ordered raw records into normalized items.
// With a nil Enricher it runs in deterministic rule-based mode.
type Normalizer struct {
	classifier *classify.Classifier
	resolver   *dates.Resolver
	enricher   Enricher
	chunkSize  int
	log        logger.Logger
}

// NewNormalizer creates a Normalizer. enricher may be nil for deterministic
// mode; chunkSize bounds each enrichment request.
func NewNormalizer(
	classifier *classify.Classifier,
	resolver *dates.Resolver,
	enricher Enricher,
	chunkSize int,
	log logger.Logger,
) *Normalizer {
	if chunkSize <= 0 {
		chunkSize = 5
	}
	return &Normalizer{
		classifier: classifier,
		resolver:   resolver,
		enricher:   enricher,
		chunkSize:  chunkSize,
		log:        log,
	}
}

// NormalizeCourse processes one course batch in a single sequential pass.
func (n *Normalizer) NormalizeCourse(ctx context.Context, batch CourseBatch) []domain.NormalizedItem {
	if n.enricher == nil {
		return n.normalizeDeterministic(batch)
	}
	return n.normalizeEnriched(ctx, batch)
}

// skipEmission reports whether a record is context-only and never emitted
// as its own item.
func skipEmission(rec domain.RawRecord) bool {
	return rec.Category == domain.RawCategoryCourse || rec.Category == domain.RawCategoryExternalTab
}

func (n *Normalizer) normalizeDeterministic(batch CourseBatch) []domain.NormalizedItem {
	items := make([]domain.NormalizedItem, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if skipEmission(rec) {
			continue
		}
		items = append(items, n.buildItem(batch, rec))
	}
	return items
}

// buildItem maps one raw record directly to a NormalizedItem using the
// classifier, the date resolver, and the structured payload fields.
func (n *Normalizer) buildItem(batch CourseBatch, rec domain.RawRecord) domain.NormalizedItem {
	title := rec.DisplayTitle()
	category := n.classifier.Infer(rec.Category, rec.Payload.TypeHint(), title)

	due := formatISODate(rec.Payload.DueAt())
	posted := formatISODate(rec.Payload.PostedAt())
	content := excerpt(stripHTML(rec.Payload.Body()), maxContentLen)

	inferred := due
	if inferred == "" {
		inferred = n.inferFromText(content, rec.Payload.PostedAt())
	}
	if inferred == "" {
		inferred = posted
	}

	return domain.NormalizedItem{
		OriginalID:       rec.ID,
		Category:         category,
		Title:            title,
		CourseID:         batch.CourseID,
		CourseName:       batch.CourseName,
		WeekIndex:        n.weekIndex(batch, rec, title),
		DueDate:          due,
		PostedDate:       posted,
		InferredDate:     inferred,
		ContentClean:     content,
		URL:              recordURL(rec),
		IsActionRequired: domain.ActionRequired(category),
	}
}

// inferFromText runs the date resolver over free text, anchored at the
// record's posting time. Out-of-range parses are rejected rather than
// stored.
func (n *Normalizer) inferFromText(text, postedAt string) string {
	var anchor *time.Time
	if t, err := time.Parse(time.RFC3339, postedAt); err == nil {
		anchor = &t
	}

	t, _, ok := n.resolver.Extract(text, anchor, 0)
	if !ok {
		return ""
	}
	if !n.resolver.Validate(t) {
		n.log.Debug("rejected out-of-range inferred date",
			logger.String("date", t.Format(domain.DateTimeLayout)))
		return ""
	}
	return t.Format(domain.DateTimeLayout)
}

// moduleContext is the rolling buffer of descriptive content seen so far in
// the current module. It is an explicit value threaded through the record
// loop so the reset-on-module-change invariant is a visible transition.
type moduleContext struct {
	moduleID int64
	buffer   string
}

// advance returns the context for a record: reset when the record belongs
// to a different module than the previous one.
func (mc moduleContext) advance(moduleID int64) moduleContext {
	if moduleID != mc.moduleID {
		return moduleContext{moduleID: moduleID}
	}
	return mc
}

// absorb appends a context provider's excerpt to the buffer.
func (mc moduleContext) absorb(title, body string) moduleContext {
	mc.buffer += "\n[Module Context: " + title + "] " + excerpt(body, moduleExcerptLen)
	return mc
}

// isContextProvider reports whether a record's descriptive content should
// carry forward to later items in the same module.
func isContextProvider(rec domain.RawRecord) bool {
	switch rec.Payload.TypeHint() {
	case domain.TypeHintPage, domain.TypeHintSubHeader:
		return true
	}
	return rec.Category == domain.RawCategoryAnnouncement
}

func (n *Normalizer) normalizeEnriched(ctx context.Context, batch CourseBatch) []domain.NormalizedItem {
	courseCtx := buildCourseContext(batch)

	// Single fold over the ordered records: the module buffer resets on
	// module transitions and accumulates descriptive content. Each
	// emittable record captures the buffer as it stood before the record
	// itself was absorbed, so context always refers to preceding items.
	type pending struct {
		rec  domain.RawRecord
		item enrich.Item
	}
	var queue []pending

	mc := moduleContext{}
	for _, rec := range batch.Records {
		mc = mc.advance(rec.Payload.ModuleID())

		body := stripHTML(rec.Payload.Body())
		visible := mc.buffer
		if isContextProvider(rec) {
			mc = mc.absorb(rec.DisplayTitle(), body)
		}
		if skipEmission(rec) {
			continue
		}

		queue = append(queue, pending{
			rec:  rec,
			item: n.buildEnrichItem(batch, rec, body, courseCtx, visible),
		})
	}

	byID := make(map[string]domain.RawRecord, len(queue))
	for _, p := range queue {
		byID[p.rec.ID] = p.rec
	}

	items := make([]domain.NormalizedItem, 0, len(queue))
	for start := 0; start < len(queue); start += n.chunkSize {
		end := min(start+n.chunkSize, len(queue))

		chunk := make([]enrich.Item, 0, end-start)
		for _, p := range queue[start:end] {
			chunk = append(chunk, p.item)
		}

		candidates, err := n.enricher.NormalizeItems(ctx, batch.CourseName, chunk)
		if err != nil {
			// Skip this chunk only; earlier items and accumulated
			// context are unaffected.
			n.log.Warn("enrichment chunk failed",
				logger.String("course", batch.CourseName),
				logger.Int("chunk_start", start),
				logger.Error(err))
			continue
		}

		for _, cand := range candidates {
			item, ok := n.acceptCandidate(batch, byID, cand)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

// buildCourseContext concatenates course/syllabus record bodies into the
// course-level context string prepended to every enrichment input.
func buildCourseContext(batch CourseBatch) string {
	var b strings.Builder
	for _, rec := range batch.Records {
		if rec.Category != domain.RawCategoryCourse && rec.Category != domain.RawCategorySyllabus {
			continue
		}
		body := stripHTML(rec.Payload.Body())
		if body == "" {
			body = rec.DisplayTitle()
		}
		if body == "" {
			continue
		}
		b.WriteString("[" + strings.ToUpper(rec.Category) + "] ")
		b.WriteString(excerpt(body, courseContextPerLen))
		b.WriteString("\n")
	}
	return excerpt(b.String(), maxCourseContextLen)
}

func (n *Normalizer) buildEnrichItem(
	batch CourseBatch,
	rec domain.RawRecord,
	body, courseCtx, moduleCtx string,
) enrich.Item {
	var b strings.Builder
	if courseCtx != "" {
		b.WriteString("=== COURSE CONTEXT ===\n" + courseCtx + "\n")
	}
	if moduleCtx != "" && rec.Payload.TypeHint() != domain.TypeHintSubHeader {
		b.WriteString("=== MODULE CONTEXT ===\n" + moduleCtx + "\n")
	}
	b.WriteString("=== ITEM CONTENT ===\n" + body)

	return enrich.Item{
		OriginalID:   rec.ID,
		CategoryHint: rec.Category,
		Title:        rec.DisplayTitle(),
		BodyText:     b.String(),
		WeekHint:     n.moduleLabel(batch, rec),
		Dates: enrich.Dates{
			DueAt:    rec.Payload.DueAt(),
			PostedAt: rec.Payload.PostedAt(),
		},
		ParsedDateHint: n.inferFromText(body, rec.Payload.PostedAt()),
	}
}

// acceptCandidate is the validation/backfill pass applied to every item the
// enrichment step returns.
func (n *Normalizer) acceptCandidate(
	batch CourseBatch,
	byID map[string]domain.RawRecord,
	cand enrich.Candidate,
) (domain.NormalizedItem, bool) {
	// A candidate that does not map back to an input record is discarded
	// rather than guess-matched: silent mis-association would corrupt
	// the merge key.
	rec, ok := byID[cand.OriginalID]
	if !ok {
		n.log.Warn("discarding enrichment candidate with unknown original_id",
			logger.String("course", batch.CourseName),
			logger.String("original_id", cand.OriginalID))
		return domain.NormalizedItem{}, false
	}

	title := cand.Title
	if title == "" {
		title = rec.DisplayTitle()
	}

	// Category from the model is advisory only.
	category := cand.Category
	if !domain.ValidCategory(category) {
		category = n.classifier.Infer(rec.Category, rec.Payload.TypeHint(), title)
	}

	// Structured deadline fields are authoritative over text-derived
	// dates whenever present.
	due := formatISODate(rec.Payload.DueAt())
	if due == "" {
		due = n.normalizeCandidateDate(cand.DueDate)
	}

	inferred := n.normalizeCandidateDate(cand.InferredDate)
	if inferred == "" {
		inferred = due
	}

	week := cand.WeekIndex
	if week <= 0 {
		week = n.weekIndex(batch, rec, title)
	}

	content := cand.ContentClean
	if content == "" {
		content = stripHTML(rec.Payload.Body())
	}

	return domain.NormalizedItem{
		OriginalID:       rec.ID,
		Category:         category,
		Title:            title,
		CourseID:         batch.CourseID,
		CourseName:       batch.CourseName,
		WeekIndex:        week,
		DueDate:          due,
		PostedDate:       formatISODate(rec.Payload.PostedAt()),
		InferredDate:     inferred,
		ContentClean:     excerpt(content, maxContentLen),
		URL:              recordURL(rec),
		IsActionRequired: domain.ActionRequired(category),
	}, true
}

// normalizeCandidateDate parses a model-supplied date string and validates
// it; anything unparsable or out of range yields an absent field.
func (n *Normalizer) normalizeCandidateDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	for _, layout := range []string{domain.DateTimeLayout, "2006-01-02", time.RFC3339} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !n.resolver.Validate(t) {
			n.log.Debug("rejected out-of-range enrichment date", logger.String("date", s))
			return ""
		}
		return t.Format(domain.DateTimeLayout)
	}
	return ""
}

var (
	reWeekKorean  = regexp.MustCompile(`(\d+)\s*주`)
	reWeekEnglish = regexp.MustCompile(`(?i)week\s*(\d+)`)
)

// weekIndex derives the course week from the module label, falling back to
// the title. 0 means unknown/common.
func (n *Normalizer) weekIndex(batch CourseBatch, rec domain.RawRecord, title string) int {
	if w := parseWeek(n.moduleLabel(batch, rec)); w > 0 {
		return w
	}
	return parseWeek(title)
}

// moduleLabel resolves the record's module to its week/module label.
func (n *Normalizer) moduleLabel(batch CourseBatch, rec domain.RawRecord) string {
	if name, ok := batch.ModuleMap[rec.Payload.ModuleID()]; ok && name != "" {
		return name
	}
	return rec.Payload.ModuleName()
}

func parseWeek(s string) int {
	if s == "" {
		return 0
	}
	if m := reWeekKorean.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	if m := reWeekEnglish.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	return 0
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

var reWhitespace = regexp.MustCompile(`\s+`)

// stripHTML reduces HTML (or plain text) to collapsed visible text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
	}
	return strings.TrimSpace(reWhitespace.ReplaceAllString(doc.Text(), " "))
}

// excerpt truncates s to at most n runes.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// formatISODate converts an ISO-8601 timestamp into the normalized
// "YYYY-MM-DD HH:MM" form, keeping the origin's wall-clock time.
func formatISODate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ""
	}
	return t.Format(domain.DateTimeLayout)
}

func recordURL(rec domain.RawRecord) string {
	if rec.URL != "" {
		return rec.URL
	}
	return rec.Payload.HTMLURL()
}
