package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// ErrDuplicateKey marks a unique-constraint violation so the service layer
// can distinguish "already assigned" from generic write failures.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrStaleRow marks a conditional update that matched no row because the
// expected timestamp no longer holds.
var ErrStaleRow = errors.New("stale row")

// AssignmentRepository persists assignments and their override rows. It is
// the storage arm of the assignment graph; nothing else writes unlock state.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns one assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, class_id, course_id, institution_id, assigned_by, assigned_at, updated_at
        FROM class_assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ExistsByClassAndCourse reports whether the (class, course) pair is taken.
func (r *AssignmentRepository) ExistsByClassAndCourse(ctx context.Context, classID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM class_assignments WHERE class_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return true, nil
}

// List returns assignments matching the filter with a total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	conditions := " WHERE institution_id = $1"
	args := []interface{}{filter.InstitutionID}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions += fmt.Sprintf(" AND course_id = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, class_id, course_id, institution_id, assigned_by, assigned_at, updated_at
        FROM class_assignments%s ORDER BY assigned_at DESC, id ASC LIMIT %d OFFSET %d`, conditions, size, offset)

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM class_assignments" + conditions
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListByClass returns every assignment of a class within an institution.
func (r *AssignmentRepository) ListByClass(ctx context.Context, institutionID, classID string) ([]models.Assignment, error) {
	const query = `SELECT id, class_id, course_id, institution_id, assigned_by, assigned_at, updated_at
        FROM class_assignments WHERE institution_id = $1 AND class_id = $2 ORDER BY assigned_at DESC, id ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, institutionID, classID); err != nil {
		return nil, fmt.Errorf("list class assignments: %w", err)
	}
	return assignments, nil
}

// CreateWithSelection writes the assignment row, its module overrides and its
// session overrides in one transaction, in that order. All three tables share
// the transaction so a failure at any step leaves no partial state behind.
// A unique violation on (class_id, course_id) surfaces as ErrDuplicateKey.
func (r *AssignmentRepository) CreateWithSelection(ctx context.Context, assignment *models.Assignment, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error {
	now := time.Now().UTC()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = now
	}
	assignment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertAssignment = `INSERT INTO class_assignments (id, class_id, course_id, institution_id, assigned_by, assigned_at, updated_at)
        VALUES (:id, :class_id, :course_id, :institution_id, :assigned_by, :assigned_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertAssignment, assignment); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert assignment: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := insertOverrides(ctx, tx, moduleOverrides, sessionOverrides); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment tx: %w", err)
	}
	return nil
}

// ReplaceSelection swaps all override rows of an assignment for a new set,
// conditionally on the expected updated_at timestamp (compare-and-swap).
// ErrStaleRow is returned when a concurrent edit won the race.
func (r *AssignmentRepository) ReplaceSelection(ctx context.Context, assignmentID string, expectedUpdatedAt time.Time, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin selection tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const touch = `UPDATE class_assignments SET updated_at = $3 WHERE id = $1 AND updated_at = $2`
	result, err := tx.ExecContext(ctx, touch, assignmentID, expectedUpdatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch assignment: %w", err)
	}
	if affected == 0 {
		return ErrStaleRow
	}

	const deleteSessions = `DELETE FROM session_overrides WHERE module_override_id IN
        (SELECT id FROM module_overrides WHERE assignment_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteSessions, assignmentID); err != nil {
		return fmt.Errorf("delete stale session overrides: %w", err)
	}
	const deleteModules = `DELETE FROM module_overrides WHERE assignment_id = $1`
	if _, err := tx.ExecContext(ctx, deleteModules, assignmentID); err != nil {
		return fmt.Errorf("delete stale module overrides: %w", err)
	}

	if err := insertOverrides(ctx, tx, moduleOverrides, sessionOverrides); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit selection tx: %w", err)
	}
	return nil
}

// Delete removes an assignment. The store cascades override deletion; the
// explicit override deletes keep stores without cascade rules consistent.
// Deleting a missing id is a no-op success.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteSessions = `DELETE FROM session_overrides WHERE module_override_id IN
        (SELECT id FROM module_overrides WHERE assignment_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteSessions, id); err != nil {
		return fmt.Errorf("delete session overrides: %w", err)
	}
	const deleteModules = `DELETE FROM module_overrides WHERE assignment_id = $1`
	if _, err := tx.ExecContext(ctx, deleteModules, id); err != nil {
		return fmt.Errorf("delete module overrides: %w", err)
	}
	const deleteAssignment = `DELETE FROM class_assignments WHERE id = $1`
	if _, err := tx.ExecContext(ctx, deleteAssignment, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func insertOverrides(ctx context.Context, tx *sqlx.Tx, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error {
	const insertModule = `INSERT INTO module_overrides (id, assignment_id, module_id, is_unlocked, unlock_order, unlock_mode)
        VALUES (:id, :assignment_id, :module_id, :is_unlocked, :unlock_order, :unlock_mode)`
	for i := range moduleOverrides {
		if moduleOverrides[i].ID == "" {
			moduleOverrides[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, insertModule, &moduleOverrides[i]); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert module override: %w", ErrDuplicateKey)
			}
			return fmt.Errorf("insert module override: %w", err)
		}
	}

	const insertSession = `INSERT INTO session_overrides (id, module_override_id, session_id, is_unlocked, unlock_order, unlock_mode)
        VALUES (:id, :module_override_id, :session_id, :is_unlocked, :unlock_order, :unlock_mode)`
	for i := range sessionOverrides {
		if sessionOverrides[i].ID == "" {
			sessionOverrides[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, insertSession, &sessionOverrides[i]); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert session override: %w", ErrDuplicateKey)
			}
			return fmt.Errorf("insert session override: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
