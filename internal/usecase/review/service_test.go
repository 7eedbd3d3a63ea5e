package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	domainreview "reviewdeck/internal/domain/review"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "reviewdeck/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "reviewdeck/internal/infrastructure/persistence/sqlite/uow"
	"reviewdeck/internal/ports"
)

type testCache struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newTestCache() *testCache {
	return &testCache{data: make(map[string]string)}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// stubSCM serves one provider with canned file lists and contents.
type stubSCM struct {
	provider domainreview.Provider

	mu       sync.Mutex
	prFiles  map[int][]domainreview.ChangedFile
	shaFiles map[string][]domainreview.ChangedFile
	contents map[string]string

	listErr    error
	contentErr map[string]error

	contentCalls int
}

func newStubSCM(provider domainreview.Provider) *stubSCM {
	return &stubSCM{
		provider:   provider,
		prFiles:    make(map[int][]domainreview.ChangedFile),
		shaFiles:   make(map[string][]domainreview.ChangedFile),
		contents:   make(map[string]string),
		contentErr: make(map[string]error),
	}
}

func (s *stubSCM) Provider() domainreview.Provider { return s.provider }

func (s *stubSCM) ListPullRequestFiles(_ context.Context, _ ports.RepoRef, prNumber int) ([]domainreview.ChangedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.prFiles[prNumber], nil
}

func (s *stubSCM) ListCommitFiles(_ context.Context, _ ports.RepoRef, sha string) ([]domainreview.ChangedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.shaFiles[sha], nil
}

func (s *stubSCM) GetFileContent(_ context.Context, _ ports.RepoRef, path string, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentCalls++
	if err := s.contentErr[path]; err != nil {
		return "", err
	}
	content, ok := s.contents[path]
	if !ok {
		return "", errors.New("no such file: " + path)
	}
	return content, nil
}

type stubRegistry struct {
	clients map[domainreview.Provider]ports.SCMClient
}

func (r *stubRegistry) Client(provider domainreview.Provider) (ports.SCMClient, error) {
	client, ok := r.clients[provider]
	if !ok {
		return nil, errors.New("no client for provider " + string(provider))
	}
	return client, nil
}

// stubAnalyzer returns canned per-path results.
type stubAnalyzer struct {
	mu      sync.Mutex
	results map[string]domainreview.FileAnalysis
	fail    map[string]error
	calls   []string
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{
		results: make(map[string]domainreview.FileAnalysis),
		fail:    make(map[string]error),
	}
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string, _ string, path string) (domainreview.FileAnalysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, path)
	if err := a.fail[path]; err != nil {
		return domainreview.FileAnalysis{}, err
	}
	return a.results[path], nil
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
}

func (p *recordingPublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	db        *gorm.DB
	cache     *testCache
	scm       *stubSCM
	analyzer  *stubAnalyzer
	publisher *recordingPublisher
}

func setupService(t *testing.T) (*Service, *harness) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Repository{},
		&model.Review{},
		&model.Finding{},
		&model.User{},
		&model.RepositoryOwner{},
		&model.Organization{},
		&model.OrganizationMember{},
		&model.OrganizationRepository{},
		&model.Comment{},
		&model.WebhookDelivery{},
		&model.KVEntry{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	h := &harness{
		db:        db,
		cache:     newTestCache(),
		scm:       newStubSCM(domainreview.ProviderGitHub),
		analyzer:  newStubAnalyzer(),
		publisher: &recordingPublisher{},
	}

	svc := NewService(Deps{
		Repositories:       sqliterepo.NewRepositoryStore(db),
		Reviews:            sqliterepo.NewReviewStore(db),
		Findings:           sqliterepo.NewFindingStore(db),
		Users:              sqliterepo.NewUserStore(db),
		Comments:           sqliterepo.NewCommentStore(db),
		Deliveries:         sqliterepo.NewDeliveryStore(db),
		UnitOfWork:         sqliteuow.NewUnitOfWork(db),
		Cache:              h.cache,
		SCMs:               &stubRegistry{clients: map[domainreview.Provider]ports.SCMClient{h.scm.provider: h.scm}},
		Analyzer:           h.analyzer,
		Publisher:          h.publisher,
		MaxConcurrentFiles: 2,
	})

	// Run the analysis pipeline inline so tests observe terminal state
	// without polling.
	svc.spawn = func(fn func()) { fn() }

	return svc, h
}

func (h *harness) seedUser(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	user := model.User{ID: id, Email: id + "@example.com", Name: name, CreatedAt: time.Now().UTC()}
	if err := h.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (h *harness) seedRepository(t *testing.T, provider domainreview.Provider, externalID string, fullName string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	repo := model.Repository{
		ID:            id,
		Provider:      string(provider),
		ExternalID:    externalID,
		Name:          repositoryName(fullName),
		FullName:      fullName,
		URL:           "https://example.com/" + fullName,
		DefaultBranch: "main",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.db.Create(&repo).Error; err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	return id
}

func (h *harness) seedOwner(t *testing.T, repositoryID string, userID string) {
	t.Helper()
	owner := model.RepositoryOwner{RepositoryID: repositoryID, UserID: userID}
	if err := h.db.Create(&owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
}

func (h *harness) loadReview(t *testing.T, id string) model.Review {
	t.Helper()
	var rec model.Review
	if err := h.db.First(&rec, "id = ?", id).Error; err != nil {
		t.Fatalf("load review %s: %v", id, err)
	}
	return rec
}

func (h *harness) countRows(t *testing.T, m any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	tx := h.db.Model(m)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}
