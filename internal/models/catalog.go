package models

import "time"

// CourseStatus is the lifecycle state of a catalog course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusActive    CourseStatus = "active"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// Course is the root of the catalog tree. Modules are hydrated by the
// catalog loader, ordered by display_order ascending.
type Course struct {
	ID        string       `db:"id" json:"id"`
	Title     string       `db:"title" json:"title"`
	Code      string       `db:"code" json:"code"`
	Status    CourseStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`

	Modules []Module `db:"-" json:"modules,omitempty"`
}

// Module groups sessions within a course. DisplayOrder defines the canonical
// sequence and is unique among siblings.
type Module struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Title        string    `db:"title" json:"title"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Sessions []Session `db:"-" json:"sessions,omitempty"`
}

// Session groups content items within a module.
type Session struct {
	ID           string    `db:"id" json:"id"`
	ModuleID     string    `db:"module_id" json:"module_id"`
	Title        string    `db:"title" json:"title"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Content []ContentItem `db:"-" json:"content,omitempty"`
}

// ContentItem is an opaque leaf (video, document or quiz reference).
type ContentItem struct {
	ID           string    `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	Title        string    `db:"title" json:"title"`
	ContentType  string    `db:"content_type" json:"content_type"`
	ContentRef   string    `db:"content_ref" json:"content_ref"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
