package dto

import (
	"time"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// SessionSelection is one session's unlock state within an explicit selection.
type SessionSelection struct {
	SessionID   string            `json:"session_id" validate:"required"`
	IsUnlocked  bool              `json:"is_unlocked"`
	UnlockOrder int               `json:"unlock_order"`
	UnlockMode  models.UnlockMode `json:"unlock_mode" validate:"omitempty,oneof=manual sequential"`
}

// ModuleSelection is one module's unlock state plus its session selections.
type ModuleSelection struct {
	ModuleID    string             `json:"module_id" validate:"required"`
	IsUnlocked  bool               `json:"is_unlocked"`
	UnlockOrder int                `json:"unlock_order"`
	UnlockMode  models.UnlockMode  `json:"unlock_mode" validate:"omitempty,oneof=manual sequential"`
	Sessions    []SessionSelection `json:"sessions" validate:"dive"`
}

// Selection describes which modules and sessions an assignment covers.
// SelectAll is the ALL sentinel: no override rows are written and the whole
// course is unlocked. It is distinct from an explicit selection that happens
// to unlock everything.
type Selection struct {
	SelectAll bool              `json:"select_all"`
	Modules   []ModuleSelection `json:"modules" validate:"dive"`
}

// AssignCourseRequest creates a new assignment for a class.
type AssignCourseRequest struct {
	CourseID  string            `json:"course_id" validate:"required"`
	SelectAll bool              `json:"select_all"`
	Modules   []ModuleSelection `json:"modules" validate:"dive"`
}

// ReplaceSelectionRequest swaps an assignment's selection wholesale. The
// expected timestamp implements compare-and-swap against concurrent edits.
type ReplaceSelectionRequest struct {
	SelectAll         bool              `json:"select_all"`
	Modules           []ModuleSelection `json:"modules" validate:"dive"`
	ExpectedUpdatedAt time.Time         `json:"expected_updated_at" validate:"required"`
}

// ToggleUnlockRequest flips a single override row.
type ToggleUnlockRequest struct {
	IsUnlocked bool `json:"is_unlocked"`
}

// AssignmentSelection is the read-back of an assignment with its persisted
// selection, reproducing exactly what was written.
type AssignmentSelection struct {
	Assignment models.Assignment `json:"assignment"`
	SelectAll  bool              `json:"select_all"`
	Modules    []ModuleSelection `json:"modules,omitempty"`
}
