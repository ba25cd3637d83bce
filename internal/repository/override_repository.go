package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// OverrideRepository reads and toggles the per-assignment unlock override
// rows. It shares the chunking discipline of the catalog repository for
// fan-in reads across many module overrides.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs the repository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// ListModuleOverrides returns all module overrides of one assignment ordered
// by unlock_order then id. An empty result is the ALL sentinel, not an error.
func (r *OverrideRepository) ListModuleOverrides(ctx context.Context, assignmentID string) ([]models.ModuleOverride, error) {
	const query = `SELECT id, assignment_id, module_id, is_unlocked, unlock_order, unlock_mode
        FROM module_overrides WHERE assignment_id = $1 ORDER BY unlock_order ASC, id ASC`
	var overrides []models.ModuleOverride
	if err := r.db.SelectContext(ctx, &overrides, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list module overrides: %w", err)
	}
	return overrides, nil
}

// ListSessionOverrides returns session overrides for the given module
// overrides, fetched in chunks of catalogChunkSize ids.
func (r *OverrideRepository) ListSessionOverrides(ctx context.Context, moduleOverrideIDs []string) ([]models.SessionOverride, error) {
	var overrides []models.SessionOverride
	for start := 0; start < len(moduleOverrideIDs); start += catalogChunkSize {
		end := start + catalogChunkSize
		if end > len(moduleOverrideIDs) {
			end = len(moduleOverrideIDs)
		}
		chunk := moduleOverrideIDs[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf(`SELECT id, module_override_id, session_id, is_unlocked, unlock_order, unlock_mode
        FROM session_overrides WHERE module_override_id IN (%s) ORDER BY unlock_order ASC, id ASC`, strings.Join(placeholders, ","))
		var part []models.SessionOverride
		if err := r.db.SelectContext(ctx, &part, query, args...); err != nil {
			return nil, fmt.Errorf("list session overrides chunk: %w", err)
		}
		overrides = append(overrides, part...)
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		if overrides[i].UnlockOrder != overrides[j].UnlockOrder {
			return overrides[i].UnlockOrder < overrides[j].UnlockOrder
		}
		return overrides[i].ID < overrides[j].ID
	})
	return overrides, nil
}

// FindModuleOverride returns one module override by id.
func (r *OverrideRepository) FindModuleOverride(ctx context.Context, id string) (*models.ModuleOverride, error) {
	const query = `SELECT id, assignment_id, module_id, is_unlocked, unlock_order, unlock_mode
        FROM module_overrides WHERE id = $1`
	var override models.ModuleOverride
	if err := r.db.GetContext(ctx, &override, query, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// FindSessionOverride returns one session override by id.
func (r *OverrideRepository) FindSessionOverride(ctx context.Context, id string) (*models.SessionOverride, error) {
	const query = `SELECT id, module_override_id, session_id, is_unlocked, unlock_order, unlock_mode
        FROM session_overrides WHERE id = $1`
	var override models.SessionOverride
	if err := r.db.GetContext(ctx, &override, query, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// SetModuleUnlock updates exactly one module override. Locking a module does
// not cascade to its sessions.
func (r *OverrideRepository) SetModuleUnlock(ctx context.Context, id string, isUnlocked bool) error {
	const query = `UPDATE module_overrides SET is_unlocked = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, isUnlocked); err != nil {
		return fmt.Errorf("set module unlock: %w", err)
	}
	return nil
}

// SetSessionUnlock updates one session override. When unlocking, the parent
// module override is promoted to unlocked in the same transaction: a session
// must never be visibly unlocked under a locked module.
func (r *OverrideRepository) SetSessionUnlock(ctx context.Context, id string, isUnlocked bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session unlock tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updateSession = `UPDATE session_overrides SET is_unlocked = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateSession, id, isUnlocked); err != nil {
		return fmt.Errorf("set session unlock: %w", err)
	}

	if isUnlocked {
		const promoteParent = `UPDATE module_overrides SET is_unlocked = TRUE
        WHERE id = (SELECT module_override_id FROM session_overrides WHERE id = $1)
        AND is_unlocked = FALSE`
		if _, err := tx.ExecContext(ctx, promoteParent, id); err != nil {
			return fmt.Errorf("promote parent module: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session unlock tx: %w", err)
	}
	return nil
}

// CountByAssignment returns how many module and session overrides reference
// an assignment. Used to verify removal left nothing behind.
func (r *OverrideRepository) CountByAssignment(ctx context.Context, assignmentID string) (moduleCount, sessionCount int, err error) {
	const moduleQuery = `SELECT COUNT(*) FROM module_overrides WHERE assignment_id = $1`
	if err := r.db.GetContext(ctx, &moduleCount, moduleQuery, assignmentID); err != nil {
		return 0, 0, fmt.Errorf("count module overrides: %w", err)
	}
	const sessionQuery = `SELECT COUNT(*) FROM session_overrides WHERE module_override_id IN
        (SELECT id FROM module_overrides WHERE assignment_id = $1)`
	if err := r.db.GetContext(ctx, &sessionCount, sessionQuery, assignmentID); err != nil {
		return 0, 0, fmt.Errorf("count session overrides: %w", err)
	}
	return moduleCount, sessionCount, nil
}
