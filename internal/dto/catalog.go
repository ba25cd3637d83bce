package dto

import "github.com/avesta-labs/lms-content-api/internal/models"

// CreateCourseRequest creates a catalog course.
type CreateCourseRequest struct {
	Title  string              `json:"title" validate:"required"`
	Code   string              `json:"code" validate:"required"`
	Status models.CourseStatus `json:"status" validate:"omitempty,oneof=draft active published archived"`
}

// UpdateCourseRequest updates title/code/status of a course.
type UpdateCourseRequest struct {
	Title  string              `json:"title"`
	Code   string              `json:"code"`
	Status models.CourseStatus `json:"status" validate:"omitempty,oneof=draft active published archived"`
}

// CreateModuleRequest adds a module to a course.
type CreateModuleRequest struct {
	Title        string `json:"title" validate:"required"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// CreateSessionRequest adds a session to a module.
type CreateSessionRequest struct {
	Title        string `json:"title" validate:"required"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// CreateContentItemRequest adds a content leaf to a session.
type CreateContentItemRequest struct {
	Title        string `json:"title" validate:"required"`
	ContentType  string `json:"content_type" validate:"required,oneof=video document quiz"`
	ContentRef   string `json:"content_ref" validate:"required"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}
