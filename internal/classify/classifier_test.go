package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusdash/campusdash/internal/domain"
)

func TestInferPrecedence(t *testing.T) {
	c := New()

	tests := []struct {
		name        string
		rawCategory string
		typeHint    string
		title       string
		want        string
	}{
		{
			// Type hint beats both the raw category and the notice
			// keyword in the title.
			name:        "type hint wins",
			rawCategory: "module_item",
			typeHint:    "Assignment",
			title:       "Week 3 Notice",
			want:        domain.CategoryAssignment,
		},
		{
			name:        "quiz type hint",
			rawCategory: "module_item",
			typeHint:    "Quiz",
			title:       "중간고사 안내",
			want:        domain.CategoryQuiz,
		},
		{
			name:        "external tool is video",
			rawCategory: "module_item",
			typeHint:    "ExternalTool",
			title:       "녹화 강의",
			want:        domain.CategoryVideo,
		},
		{
			name:        "page is material",
			rawCategory: "module_item",
			typeHint:    "Page",
			title:       "과제 설명",
			want:        domain.CategoryMaterial,
		},
		{
			name:        "announcement category",
			rawCategory: "announcement",
			typeHint:    "",
			title:       "과제 공지",
			want:        domain.CategoryNotice,
		},
		{
			name:        "discussion mirror is notice",
			rawCategory: "discussion_raw",
			typeHint:    "",
			title:       "",
			want:        domain.CategoryNotice,
		},
		{
			name:        "syllabus is material",
			rawCategory: "syllabus",
			typeHint:    "",
			title:       "",
			want:        domain.CategoryMaterial,
		},
		{
			name:        "assignment keyword in title",
			rawCategory: "",
			typeHint:    "",
			title:       "3주차 과제 제출 안내",
			want:        domain.CategoryAssignment,
		},
		{
			name:        "quiz keyword in title",
			rawCategory: "",
			typeHint:    "",
			title:       "Quiz 2 open",
			want:        domain.CategoryQuiz,
		},
		{
			name:        "notice keyword in title",
			rawCategory: "",
			typeHint:    "",
			title:       "휴강 안내",
			want:        domain.CategoryNotice,
		},
		{
			name:        "keyword match is case insensitive",
			rawCategory: "",
			typeHint:    "",
			title:       "Final REPORT guidelines",
			want:        domain.CategoryAssignment,
		},
		{
			name:        "fallback is material",
			rawCategory: "",
			typeHint:    "",
			title:       "수업 자료",
			want:        domain.CategoryMaterial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Infer(tt.rawCategory, tt.typeHint, tt.title)
			assert.Equal(t, tt.want, got)
		})
	}
}
