package models

import "time"

// UnlockMode describes how an override is intended to unlock. The value is
// stored and returned as metadata for the assigning admin's workflow; the
// resolver never derives unlock state from it.
type UnlockMode string

const (
	UnlockModeManual     UnlockMode = "manual"
	UnlockModeSequential UnlockMode = "sequential"
)

// Assignment binds one course to one class within one institution. It is the
// unit at which content visibility is controlled and exclusively owns its
// module and session overrides.
type Assignment struct {
	ID            string    `db:"id" json:"id"`
	ClassID       string    `db:"class_id" json:"class_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	InstitutionID string    `db:"institution_id" json:"institution_id"`
	AssignedBy    string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt    time.Time `db:"assigned_at" json:"assigned_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ModuleOverride overrides unlock state for one module of one assignment.
// Uniqueness: one row per (assignment_id, module_id).
//
// The absence of any override rows for an assignment is the ALL sentinel:
// every module and session is unlocked. It is not "nothing assigned."
type ModuleOverride struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignment_id"`
	ModuleID     string     `db:"module_id" json:"module_id"`
	IsUnlocked   bool       `db:"is_unlocked" json:"is_unlocked"`
	UnlockOrder  int        `db:"unlock_order" json:"unlock_order"`
	UnlockMode   UnlockMode `db:"unlock_mode" json:"unlock_mode"`
}

// SessionOverride overrides unlock state for one session under a module
// override. Uniqueness: one row per (module_override_id, session_id).
type SessionOverride struct {
	ID               string     `db:"id" json:"id"`
	ModuleOverrideID string     `db:"module_override_id" json:"module_override_id"`
	SessionID        string     `db:"session_id" json:"session_id"`
	IsUnlocked       bool       `db:"is_unlocked" json:"is_unlocked"`
	UnlockOrder      int        `db:"unlock_order" json:"unlock_order"`
	UnlockMode       UnlockMode `db:"unlock_mode" json:"unlock_mode"`
}

// AssignmentFilter captures listing criteria for assignments.
type AssignmentFilter struct {
	InstitutionID string
	ClassID       string
	CourseID      string
	Page          int
	PageSize      int
}
