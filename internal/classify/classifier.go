// Package classify infers the normalized category of a raw record from its
// origin type hint, raw category label, and title keywords.
package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/campusdash/campusdash/internal/domain"
)

// typeHintTable maps the origin's machine-readable item types. These are the
// most trustworthy signal and are checked first.
var typeHintTable = map[string]string{
	domain.TypeHintAssignment:   domain.CategoryAssignment,
	domain.TypeHintQuiz:         domain.CategoryQuiz,
	domain.TypeHintExternalTool: domain.CategoryVideo,
	domain.TypeHintPage:         domain.CategoryMaterial,
	domain.TypeHintFile:         domain.CategoryMaterial,
}

// rawCategoryTable maps origin category labels, checked after type hints.
var rawCategoryTable = map[string]string{
	domain.RawCategoryAnnouncement: domain.CategoryNotice,
	domain.RawCategoryDiscussion:   domain.CategoryNotice,
	domain.RawCategorySyllabus:     domain.CategoryMaterial,
	domain.RawCategoryWeekModule:   domain.CategoryMaterial,
	domain.RawCategoryFileMeta:     domain.CategoryMaterial,
	domain.RawCategoryModuleItem:   domain.CategoryMaterial,
}

// Title keyword sets, scanned last. Keywords are matched as case-insensitive
// substrings.
var (
	assignmentKeywords = []string{"과제", "assignment", "report", "제출"}
	quizKeywords       = []string{"퀴즈", "quiz", "시험", "test"}
	noticeKeywords     = []string{"공지", "안내", "notice"}
)

// Classifier infers normalized categories. The title keyword tier uses
// Aho-Corasick matchers so a title is scanned in a single pass per set.
type Classifier struct {
	assignment *ahocorasick.Matcher
	quiz       *ahocorasick.Matcher
	notice     *ahocorasick.Matcher
}

// New builds a Classifier with the fixed keyword sets.
func New() *Classifier {
	return &Classifier{
		assignment: ahocorasick.NewStringMatcher(assignmentKeywords),
		quiz:       ahocorasick.NewStringMatcher(quizKeywords),
		notice:     ahocorasick.NewStringMatcher(noticeKeywords),
	}
}

// Infer resolves the normalized category for a record. Precedence, first
// match wins: explicit type hint, then raw category label, then title
// keywords, then the material fallback. Explicit machine-readable hints are
// more trustworthy than origin labels, which are more trustworthy than
// free-text heuristics.
func (c *Classifier) Infer(rawCategory, typeHint, title string) string {
	if cat, ok := typeHintTable[typeHint]; ok {
		return cat
	}

	if cat, ok := rawCategoryTable[rawCategory]; ok {
		return cat
	}

	lower := []byte(strings.ToLower(title))
	switch {
	case len(c.assignment.Match(lower)) > 0:
		return domain.CategoryAssignment
	case len(c.quiz.Match(lower)) > 0:
		return domain.CategoryQuiz
	case len(c.notice.Match(lower)) > 0:
		return domain.CategoryNotice
	}

	return domain.CategoryMaterial
}
