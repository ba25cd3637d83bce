package dto

import "github.com/avesta-labs/lms-content-api/internal/models"

// ResolvedContent is one content item in a resolved view. Completion fields
// are populated only on student views when a student id was supplied.
type ResolvedContent struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	ContentType     string   `json:"content_type"`
	ContentRef      string   `json:"content_ref"`
	DisplayOrder    int      `json:"display_order"`
	IsCompleted     *bool    `json:"is_completed,omitempty"`
	WatchPercentage *float64 `json:"watch_percentage,omitempty"`
}

// ResolvedSession is one session in a resolved view. Student views omit
// content of locked sessions entirely; management views attach all content.
type ResolvedSession struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	DisplayOrder int               `json:"display_order"`
	IsUnlocked   bool              `json:"is_unlocked"`
	UnlockOrder  int               `json:"unlock_order"`
	UnlockMode   models.UnlockMode `json:"unlock_mode"`
	Content      []ResolvedContent `json:"content,omitempty"`
}

// ResolvedModule is one module in a resolved view.
type ResolvedModule struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	DisplayOrder int               `json:"display_order"`
	IsUnlocked   bool              `json:"is_unlocked"`
	UnlockOrder  int               `json:"unlock_order"`
	UnlockMode   models.UnlockMode `json:"unlock_mode"`
	Sessions     []ResolvedSession `json:"sessions,omitempty"`
}

// ProgressSummary counts a student's completed content against what is
// currently unlocked. Display-only; it never feeds back into unlock state.
type ProgressSummary struct {
	UnlockedContent  int `json:"unlocked_content"`
	CompletedContent int `json:"completed_content"`
}

// ResolvedCourseView is the effective visible tree for one assignment.
type ResolvedCourseView struct {
	AssignmentID string            `json:"assignment_id"`
	ClassID      string            `json:"class_id"`
	CourseID     string            `json:"course_id"`
	CourseTitle  string            `json:"course_title"`
	CourseCode   string            `json:"course_code"`
	Modules      []ResolvedModule  `json:"modules"`
	Progress     *ProgressSummary  `json:"progress,omitempty"`
}

// ClassCoursesView is the batch resolution of every assignment of a class.
// Dangling assignments are skipped and counted rather than failing the page.
type ClassCoursesView struct {
	ClassID string               `json:"class_id"`
	Courses []ResolvedCourseView `json:"courses"`
	Skipped int                  `json:"skipped_dangling"`
}
