package memory

import (
	"context"
	"sync"

	"quiz-content-service/internal/domain"
)

// SnapshotStore is an in-memory implementation of app.SnapshotStore, used in
// tests and when running without a configured backing store.
type SnapshotStore struct {
	mu          sync.RWMutex
	version     string
	tree        domain.SubjectTree
	history     map[string][]domain.QuizResult
	manifest    *domain.UpdateManifest
	profile     *domain.UserProfile
	initialized bool
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{history: make(map[string][]domain.QuizResult)}
}

func (s *SnapshotStore) Version(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

func (s *SnapshotStore) SetVersion(_ context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	return nil
}

func (s *SnapshotStore) SaveSnapshot(_ context.Context, tree domain.SubjectTree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	return nil
}

func (s *SnapshotStore) ReplaceSnapshot(_ context.Context, tree domain.SubjectTree, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.version = version
	return nil
}

func (s *SnapshotStore) SubjectCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Counts(), nil
}

func (s *SnapshotStore) Questions(_ context.Context, subject string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.OrderedQuestions(subject), nil
}

func (s *SnapshotStore) AppendResult(_ context.Context, user string, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[user] = append([]domain.QuizResult{result}, s.history[user]...)
	return nil
}

func (s *SnapshotStore) History(_ context.Context, user string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]domain.QuizResult, len(s.history[user]))
	copy(history, s.history[user])
	return history, nil
}

func (s *SnapshotStore) CacheManifest(_ context.Context, m domain.UpdateManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = &m
	return nil
}

func (s *SnapshotStore) CachedManifest(_ context.Context) (*domain.UpdateManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return nil, nil
	}
	m := *s.manifest
	return &m, nil
}

func (s *SnapshotStore) Initialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

func (s *SnapshotStore) MarkInitialized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *SnapshotStore) SaveProfile(_ context.Context, p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &p
	return nil
}

func (s *SnapshotStore) Profile(_ context.Context) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, nil
	}
	p := *s.profile
	return &p, nil
}

func (s *SnapshotStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = ""
	s.tree = nil
	s.history = make(map[string][]domain.QuizResult)
	s.manifest = nil
	s.profile = nil
	s.initialized = false
	return nil
}
