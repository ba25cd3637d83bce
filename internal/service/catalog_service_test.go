package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type mockCatalogRepo struct {
	courses     []models.Course
	modules     []models.Module
	sessions    []models.Session
	content     []models.ContentItem
	takenOrders map[string]bool
	listCalls   int
	moduleErr   error
	contentErr  error
}

func (m *mockCatalogRepo) ListCourses(ctx context.Context, statuses []models.CourseStatus) ([]models.Course, error) {
	m.listCalls++
	if len(statuses) == 0 {
		return m.courses, nil
	}
	allowed := make(map[models.CourseStatus]struct{}, len(statuses))
	for _, status := range statuses {
		allowed[status] = struct{}{}
	}
	var result []models.Course
	for _, course := range m.courses {
		if _, ok := allowed[course.Status]; ok {
			result = append(result, course)
		}
	}
	return result, nil
}

func (m *mockCatalogRepo) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	for _, course := range m.courses {
		if course.ID == id {
			c := course
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) ListModulesByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Module, error) {
	if m.moduleErr != nil {
		return nil, m.moduleErr
	}
	return m.modules, nil
}

func (m *mockCatalogRepo) ListSessionsByModuleIDs(ctx context.Context, moduleIDs []string) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockCatalogRepo) ListContentBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.ContentItem, error) {
	if m.contentErr != nil {
		return nil, m.contentErr
	}
	return m.content, nil
}

func (m *mockCatalogRepo) CreateCourse(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	m.courses = append(m.courses, *course)
	return nil
}

func (m *mockCatalogRepo) UpdateCourse(ctx context.Context, id, title, code string, status models.CourseStatus) error {
	for i := range m.courses {
		if m.courses[i].ID == id {
			if title != "" {
				m.courses[i].Title = title
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockCatalogRepo) SiblingOrderTaken(ctx context.Context, table, parentColumn, parentID string, displayOrder int) (bool, error) {
	if m.takenOrders == nil {
		return false, nil
	}
	key := table + "/" + parentID
	return m.takenOrders[key], nil
}

func (m *mockCatalogRepo) CreateModule(ctx context.Context, module *models.Module) error {
	module.ID = "mod-new"
	m.modules = append(m.modules, *module)
	return nil
}

func (m *mockCatalogRepo) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = "sess-new"
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockCatalogRepo) CreateContentItem(ctx context.Context, item *models.ContentItem) error {
	item.ID = "content-new"
	m.content = append(m.content, *item)
	return nil
}

func (m *mockCatalogRepo) FindModule(ctx context.Context, id string) (*models.Module, error) {
	for _, module := range m.modules {
		if module.ID == id {
			mod := module
			return &mod, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) FindSession(ctx context.Context, id string) (*models.Session, error) {
	for _, session := range m.sessions {
		if session.ID == id {
			s := session
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

// memoryCache is an in-process CacheRepository used to exercise the real
// CacheService in front of the catalog.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func newCatalogFixture() (*CatalogService, *mockCatalogRepo, *memoryCache) {
	repo := &mockCatalogRepo{
		courses: []models.Course{
			{ID: "course-1", Title: "Intro to Robotics", Code: "ROB-101", Status: models.CourseStatusPublished},
		},
		modules: []models.Module{
			{ID: "mod-1", CourseID: "course-1", Title: "Basics", DisplayOrder: 1},
			{ID: "mod-2", CourseID: "course-1", Title: "Sensors", DisplayOrder: 2},
		},
		sessions: []models.Session{
			{ID: "sess-1", ModuleID: "mod-1", Title: "Safety", DisplayOrder: 1},
			{ID: "sess-2", ModuleID: "mod-1", Title: "Motors", DisplayOrder: 2},
		},
		content: []models.ContentItem{
			{ID: "content-7a", SessionID: "sess-1", Title: "Lab rules", ContentType: "video", DisplayOrder: 1},
		},
	}
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	return NewCatalogService(repo, cache, nil, nil), repo, cacheRepo
}

func TestLoadCourseTreeHydratesNestedTree(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	courses, err := svc.LoadCourseTree(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	course := courses[0]
	require.Len(t, course.Modules, 2)
	assert.Equal(t, "Basics", course.Modules[0].Title)
	require.Len(t, course.Modules[0].Sessions, 2)
	require.Len(t, course.Modules[0].Sessions[0].Content, 1)
	assert.Equal(t, "Lab rules", course.Modules[0].Sessions[0].Content[0].Title)
	assert.Empty(t, course.Modules[1].Sessions)
}

func TestLoadCourseTreeServesSecondCallFromCache(t *testing.T) {
	svc, repo, _ := newCatalogFixture()

	_, err := svc.LoadCourseTree(context.Background(), []models.CourseStatus{models.CourseStatusPublished})
	require.NoError(t, err)
	_, err = svc.LoadCourseTree(context.Background(), []models.CourseStatus{models.CourseStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCatalogMutationInvalidatesTreeCache(t *testing.T) {
	svc, repo, _ := newCatalogFixture()

	_, err := svc.LoadCourseTree(context.Background(), nil)
	require.NoError(t, err)

	_, err = svc.AddModule(context.Background(), "course-1", dto.CreateModuleRequest{Title: "Actuators", DisplayOrder: 3})
	require.NoError(t, err)

	_, err = svc.LoadCourseTree(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestGetCourseTreeUnknownCourse(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	_, err := svc.GetCourseTree(context.Background(), "course-missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAddModuleRejectsDuplicateDisplayOrder(t *testing.T) {
	svc, repo, _ := newCatalogFixture()
	repo.takenOrders = map[string]bool{"course_modules/course-1": true}

	_, err := svc.AddModule(context.Background(), "course-1", dto.CreateModuleRequest{Title: "Actuators", DisplayOrder: 1})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestAddSessionUnknownModule(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	_, err := svc.AddSession(context.Background(), "mod-missing", dto.CreateSessionRequest{Title: "Wheels", DisplayOrder: 1})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestLoadCourseTreeFailsWhenBatchFetchFails(t *testing.T) {
	svc, repo, _ := newCatalogFixture()
	repo.contentErr = errors.New("connection reset")

	_, err := svc.LoadCourseTree(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBatchFetchFailed))
}

func TestAddContentItemValidatesType(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	_, err := svc.AddContentItem(context.Background(), "sess-1", dto.CreateContentItemRequest{
		Title:        "Mystery",
		ContentType:  "hologram",
		ContentRef:   "ref-1",
		DisplayOrder: 5,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
