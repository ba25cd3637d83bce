package models

import "time"

// Completion records a student's watch progress against one content item.
// Rows are upserted keyed by (student_id, content_id) and are written only by
// the owning student. Completion never alters unlock state; the resolver
// reads it solely for progress display.
type Completion struct {
	ID                string     `db:"id" json:"id"`
	StudentID         string     `db:"student_id" json:"student_id"`
	ContentID         string     `db:"content_id" json:"content_id"`
	ClassAssignmentID string     `db:"class_assignment_id" json:"class_assignment_id"`
	WatchPercentage   float64    `db:"watch_percentage" json:"watch_percentage"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
