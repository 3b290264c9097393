package memory

import (
	"context"
	"sync"
	"time"

	"quiz-content-service/internal/domain"
)

// StaticContentSource is an in-memory app.ContentSource backed by fixed data,
// useful for tests and demos. Registrations and submitted results are kept so
// tests can observe the best-effort pushes.
type StaticContentSource struct {
	mu       sync.Mutex
	version  string
	tree     domain.SubjectTree
	manifest *domain.UpdateManifest

	registered []string
	results    map[string][]domain.QuizResult
}

func NewStaticContentSource(version string, tree domain.SubjectTree, manifest *domain.UpdateManifest) *StaticContentSource {
	return &StaticContentSource{
		version:  version,
		tree:     tree,
		manifest: manifest,
		results:  make(map[string][]domain.QuizResult),
	}
}

func (s *StaticContentSource) FetchVersion(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == "" {
		return "", domain.ErrVersionUnavailable
	}
	return s.version, nil
}

func (s *StaticContentSource) FetchSubjectTree(_ context.Context) (domain.SubjectTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return nil, domain.ErrContentUnavailable
	}
	return s.tree, nil
}

func (s *StaticContentSource) FetchManifest(_ context.Context, _ time.Duration) (*domain.UpdateManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest == nil {
		return nil, domain.ErrManifestUnavailable
	}
	m := *s.manifest
	return &m, nil
}

func (s *StaticContentSource) RegisterUser(_ context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, name)
}

func (s *StaticContentSource) SubmitResult(_ context.Context, user string, result domain.QuizResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[user] = append(s.results[user], result)
}

// SetContent swaps the served version and tree, simulating a remote publish.
func (s *StaticContentSource) SetContent(version string, tree domain.SubjectTree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
	s.tree = tree
}

// Registered returns the names pushed via RegisterUser.
func (s *StaticContentSource) Registered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.registered))
	copy(out, s.registered)
	return out
}

// SubmittedResults returns the results pushed via SubmitResult for a user.
func (s *StaticContentSource) SubmittedResults(user string) []domain.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QuizResult, len(s.results[user]))
	copy(out, s.results[user])
	return out
}
