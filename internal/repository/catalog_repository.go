package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// catalogChunkSize bounds the number of ids per IN clause. Backends reject
// unbounded IN lists beyond a few hundred parameters, so chunking is a
// correctness requirement for large catalogs, not a tuning knob.
const catalogChunkSize = 50

// CatalogRepository handles persistence of the course/module/session/content
// catalog tree. The read path is a pure projection over storage.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCourses returns courses filtered by status, ordered by title then id.
func (r *CatalogRepository) ListCourses(ctx context.Context, statuses []models.CourseStatus) ([]models.Course, error) {
	query := `SELECT id, title, code, status, created_at, updated_at FROM courses`
	var args []interface{}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, status)
		}
		query += fmt.Sprintf(" WHERE status IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY title ASC, id ASC"

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindCourse returns one course by id.
func (r *CatalogRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, code, status, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListModulesByCourseIDs returns modules for the given courses, fetched in
// chunks and sorted by (display_order, id) within the merged result.
func (r *CatalogRepository) ListModulesByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Module, error) {
	var modules []models.Module
	err := r.chunkedSelect(ctx, courseIDs, func(placeholders string, args []interface{}) error {
		query := fmt.Sprintf(`SELECT id, course_id, title, display_order, created_at, updated_at
        FROM course_modules WHERE course_id IN (%s) ORDER BY display_order ASC, id ASC`, placeholders)
		var chunk []models.Module
		if err := r.db.SelectContext(ctx, &chunk, query, args...); err != nil {
			return fmt.Errorf("list modules chunk: %w", err)
		}
		modules = append(modules, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].DisplayOrder != modules[j].DisplayOrder {
			return modules[i].DisplayOrder < modules[j].DisplayOrder
		}
		return modules[i].ID < modules[j].ID
	})
	return modules, nil
}

// ListSessionsByModuleIDs returns sessions for the given modules, fetched in
// chunks of catalogChunkSize parent ids per query.
func (r *CatalogRepository) ListSessionsByModuleIDs(ctx context.Context, moduleIDs []string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.chunkedSelect(ctx, moduleIDs, func(placeholders string, args []interface{}) error {
		query := fmt.Sprintf(`SELECT id, module_id, title, display_order, created_at, updated_at
        FROM course_sessions WHERE module_id IN (%s) ORDER BY display_order ASC, id ASC`, placeholders)
		var chunk []models.Session
		if err := r.db.SelectContext(ctx, &chunk, query, args...); err != nil {
			return fmt.Errorf("list sessions chunk: %w", err)
		}
		sessions = append(sessions, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].DisplayOrder != sessions[j].DisplayOrder {
			return sessions[i].DisplayOrder < sessions[j].DisplayOrder
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// ListContentBySessionIDs returns content items for the given sessions.
func (r *CatalogRepository) ListContentBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.ContentItem, error) {
	var items []models.ContentItem
	err := r.chunkedSelect(ctx, sessionIDs, func(placeholders string, args []interface{}) error {
		query := fmt.Sprintf(`SELECT id, session_id, title, content_type, content_ref, display_order, created_at, updated_at
        FROM session_content WHERE session_id IN (%s) ORDER BY display_order ASC, id ASC`, placeholders)
		var chunk []models.ContentItem
		if err := r.db.SelectContext(ctx, &chunk, query, args...); err != nil {
			return fmt.Errorf("list content chunk: %w", err)
		}
		items = append(items, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// chunkedSelect invokes fn once per chunk of ids. Any chunk failure aborts
// the whole fetch; partial results are never returned.
func (r *CatalogRepository) chunkedSelect(ctx context.Context, ids []string, fn func(placeholders string, args []interface{}) error) error {
	for start := 0; start < len(ids); start += catalogChunkSize {
		end := start + catalogChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		if err := fn(strings.Join(placeholders, ","), args); err != nil {
			return err
		}
	}
	return nil
}

// CreateCourse persists a new course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, code, status, created_at, updated_at)
        VALUES (:id, :title, :code, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateCourse updates mutable course attributes.
func (r *CatalogRepository) UpdateCourse(ctx context.Context, id, title, code string, status models.CourseStatus) error {
	const query = `UPDATE courses SET
        title = COALESCE(NULLIF($2, ''), title),
        code = COALESCE(NULLIF($3, ''), code),
        status = COALESCE(NULLIF($4, ''), status),
        updated_at = $5
        WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, title, code, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SiblingOrderTaken reports whether a display_order is already used among the
// siblings of the given parent in the given table.
func (r *CatalogRepository) SiblingOrderTaken(ctx context.Context, table, parentColumn, parentID string, displayOrder int) (bool, error) {
	allowed := map[string]bool{
		"course_modules":  true,
		"course_sessions": true,
		"session_content": true,
	}
	if !allowed[table] {
		return false, fmt.Errorf("sibling order check: unknown table %q", table)
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = $1 AND display_order = $2 LIMIT 1", table, parentColumn)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, parentID, displayOrder); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("sibling order check: %w", err)
	}
	return true, nil
}

// CreateModule persists a new module under a course.
func (r *CatalogRepository) CreateModule(ctx context.Context, module *models.Module) error {
	now := time.Now().UTC()
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	module.CreatedAt = now
	module.UpdatedAt = now
	const query = `INSERT INTO course_modules (id, course_id, title, display_order, created_at, updated_at)
        VALUES (:id, :course_id, :title, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// CreateSession persists a new session under a module.
func (r *CatalogRepository) CreateSession(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO course_sessions (id, module_id, title, display_order, created_at, updated_at)
        VALUES (:id, :module_id, :title, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateContentItem persists a new content leaf under a session.
func (r *CatalogRepository) CreateContentItem(ctx context.Context, item *models.ContentItem) error {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO session_content (id, session_id, title, content_type, content_ref, display_order, created_at, updated_at)
        VALUES (:id, :session_id, :title, :content_type, :content_ref, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create content item: %w", err)
	}
	return nil
}

// FindModule returns one module by id.
func (r *CatalogRepository) FindModule(ctx context.Context, id string) (*models.Module, error) {
	const query = `SELECT id, course_id, title, display_order, created_at, updated_at FROM course_modules WHERE id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// FindSession returns one session by id.
func (r *CatalogRepository) FindSession(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, module_id, title, display_order, created_at, updated_at FROM course_sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}
