package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
)

// --- Mock ShapeRepository ---

type mockShapeRepo struct {
	mu     sync.Mutex
	shapes map[string]domain.Shape
	listFn func(ctx context.Context) ([]domain.Shape, error)
}

func newMockShapeRepo(shapes ...domain.Shape) *mockShapeRepo {
	m := &mockShapeRepo{shapes: map[string]domain.Shape{}}
	for _, s := range shapes {
		m.shapes[s.Slug] = s
	}
	return m
}

func (m *mockShapeRepo) Create(ctx context.Context, shape *domain.Shape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shapes[shape.Slug]; ok {
		return domain.ErrConflict
	}
	shape.ID = "shape-" + shape.Slug
	m.shapes[shape.Slug] = *shape
	return nil
}

func (m *mockShapeRepo) GetBySlug(ctx context.Context, slug string) (*domain.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shapes[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockShapeRepo) List(ctx context.Context) ([]domain.Shape, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Shape, 0, len(m.shapes))
	for _, s := range m.shapes {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockShapeRepo) Delete(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shapes[slug]; !ok {
		return domain.ErrNotFound
	}
	delete(m.shapes, slug)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock StravaConnectionRepository ---

type mockStravaRepo struct {
	conns map[string]domain.StravaConnection
}

func newMockStravaRepo(conns ...domain.StravaConnection) *mockStravaRepo {
	m := &mockStravaRepo{conns: map[string]domain.StravaConnection{}}
	for _, c := range conns {
		m.conns[c.UserID] = c
	}
	return m
}

func (m *mockStravaRepo) Upsert(ctx context.Context, conn *domain.StravaConnection) error {
	m.conns[conn.UserID] = *conn
	return nil
}

func (m *mockStravaRepo) GetByUser(ctx context.Context, userID string) (*domain.StravaConnection, error) {
	c, ok := m.conns[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *mockStravaRepo) DeleteByUser(ctx context.Context, userID string) error {
	if _, ok := m.conns[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.conns, userID)
	return nil
}

// --- Mock StravaOAuth ---

type mockOAuth struct {
	exchangeFn func(ctx context.Context, code string) (*domain.StravaConnection, error)
	refreshFn  func(ctx context.Context, conn *domain.StravaConnection) (*domain.StravaConnection, error)
	refreshes  int
}

func (m *mockOAuth) AuthCodeURL(state string) string {
	return "https://www.strava.com/oauth/authorize?state=" + state
}

func (m *mockOAuth) Exchange(ctx context.Context, code string) (*domain.StravaConnection, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return &domain.StravaConnection{AthleteID: 1, AccessToken: "access-" + code}, nil
}

func (m *mockOAuth) Refresh(ctx context.Context, conn *domain.StravaConnection) (*domain.StravaConnection, error) {
	m.refreshes++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, conn)
	}
	return nil, errors.New("refresh not configured")
}

// --- Mock ExportRepository ---

type mockExportRepo struct {
	mu      sync.Mutex
	exports map[string]domain.Export
	seq     int
}

func newMockExportRepo() *mockExportRepo {
	return &mockExportRepo{exports: map[string]domain.Export{}}
}

func (m *mockExportRepo) Create(ctx context.Context, e *domain.Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.ID = fmt.Sprintf("exp-%d", m.seq)
	m.exports[e.ID] = *e
	return nil
}

func (m *mockExportRepo) GetByID(ctx context.Context, id string) (*domain.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (m *mockExportRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Export
	for _, e := range m.exports {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExportRepo) Update(ctx context.Context, e *domain.Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exports[e.ID]; !ok {
		return domain.ErrNotFound
	}
	m.exports[e.ID] = *e
	return nil
}

// --- Mock ObjectStorage ---

type mockStorage struct {
	objects map[string][]byte
}

func newMockStorage() *mockStorage { return &mockStorage{objects: map[string][]byte{}} }

func (m *mockStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	return nil
}

func (m *mockStorage) Get(ctx context.Context, key string) ([]byte, error) {
	d, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

// --- Mock StravaAPI ---

type mockStravaAPI struct {
	uploads   []ports.StravaUploadRequest
	tokens    []string
	getUpload func(id int64) (*domain.StravaUpload, error)
}

func (m *mockStravaAPI) Upload(ctx context.Context, accessToken string, req ports.StravaUploadRequest) (*domain.StravaUpload, error) {
	m.uploads = append(m.uploads, req)
	m.tokens = append(m.tokens, accessToken)
	return &domain.StravaUpload{ID: 9001, Status: "Your activity is still being processed."}, nil
}

func (m *mockStravaAPI) GetUpload(ctx context.Context, accessToken string, uploadID int64) (*domain.StravaUpload, error) {
	if m.getUpload != nil {
		return m.getUpload(uploadID)
	}
	return &domain.StravaUpload{ID: uploadID, ActivityID: 77, Status: "Your activity is ready."}, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.ExportEvent
}

func (m *mockPublisher) PublishExportEvent(ctx context.Context, event *domain.ExportEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *mockPublisher) statuses() []domain.ExportStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ExportStatus, len(m.events))
	for i, e := range m.events {
		out[i] = e.Status
	}
	return out
}

// --- Mock WorkflowStarter ---

type mockStarter struct {
	started []string
	err     error
}

func (m *mockStarter) StartExport(ctx context.Context, exportID string) error {
	if m.err != nil {
		return m.err
	}
	m.started = append(m.started, exportID)
	return nil
}
