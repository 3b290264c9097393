package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-content-service/internal/domain"
)

// ContentService is the read facade the UI consumes. It serves exclusively
// from the local snapshot store and never touches the network, except for
// best-effort result/registration forwarding that the caller never waits on.
type ContentService struct {
	store  SnapshotStore
	source ContentSource
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentService(store SnapshotStore, source ContentSource) *ContentService {
	return NewContentServiceWithClock(store, source, time.Now)
}

// NewContentServiceWithClock is test-only for deterministic timestamps.
func NewContentServiceWithClock(store SnapshotStore, source ContentSource, now func() time.Time) *ContentService {
	return &ContentService{
		store:  store,
		source: source,
		now:    now,
		rnd:    rand.New(rand.NewSource(now().UnixNano())),
	}
}

// Subjects lists subjects with their question counts. Empty when no snapshot
// has been saved yet; the UI renders that as "no subjects found".
func (s *ContentService) Subjects(ctx context.Context) (map[string]int, error) {
	return s.store.SubjectCounts(ctx)
}

// GetQuiz returns the subject's questions shuffled once for this quiz
// session. The underlying snapshot is never reordered.
func (s *ContentService) GetQuiz(ctx context.Context, subject string) ([]domain.Question, error) {
	questions, err := s.store.Questions(ctx, subject)
	if err != nil {
		return nil, err
	}

	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)

	s.mu.Lock()
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()
	return shuffled, nil
}

// RecordResult stamps and appends a completed quiz result to the user's local
// history, then forwards it remotely without blocking on the outcome.
func (s *ContentService) RecordResult(ctx context.Context, user, subject string, score, total int, answers []string) (domain.QuizResult, error) {
	result := domain.QuizResult{
		Subject:     subject,
		Score:       score,
		Total:       total,
		Timestamp:   s.now().UnixMilli(),
		UserAnswers: answers,
	}
	if err := s.store.AppendResult(ctx, user, result); err != nil {
		return domain.QuizResult{}, fmt.Errorf("append result: %w", err)
	}
	go s.source.SubmitResult(context.WithoutCancel(ctx), user, result)
	return result, nil
}

// History returns the user's quiz results, newest first.
func (s *ContentService) History(ctx context.Context, user string) ([]domain.QuizResult, error) {
	return s.store.History(ctx, user)
}

// ProfileStats aggregates a user's history for the profile surface.
type ProfileStats struct {
	TotalQuizzes int     `json:"totalQuizzes"`
	Accuracy     float64 `json:"accuracy"` // percent of all answered questions correct
	BestScore    int     `json:"bestScore"`
}

// Stats derives profile statistics from the stored history.
func (s *ContentService) Stats(ctx context.Context, user string) (ProfileStats, error) {
	history, err := s.store.History(ctx, user)
	if err != nil {
		return ProfileStats{}, err
	}
	stats := ProfileStats{TotalQuizzes: len(history)}
	totalCorrect, totalPossible := 0, 0
	for _, r := range history {
		totalCorrect += r.Score
		totalPossible += r.Total
		if r.Score > stats.BestScore {
			stats.BestScore = r.Score
		}
	}
	if totalPossible > 0 {
		stats.Accuracy = float64(totalCorrect) / float64(totalPossible) * 100
	}
	return stats, nil
}

// CreateProfile stores the onboarding profile locally and registers the user
// remotely, best effort.
func (s *ContentService) CreateProfile(ctx context.Context, name, avatarID string) error {
	if name == "" {
		return domain.ErrEmptyUserName
	}
	if err := s.store.SaveProfile(ctx, domain.UserProfile{Name: name, AvatarID: avatarID}); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	go s.source.RegisterUser(context.WithoutCancel(ctx), name)
	return nil
}

// Profile returns the stored profile, nil if onboarding has not happened.
func (s *ContentService) Profile(ctx context.Context) (*domain.UserProfile, error) {
	return s.store.Profile(ctx)
}

// SetAvatar changes the stored profile's avatar.
func (s *ContentService) SetAvatar(ctx context.Context, avatarID string) error {
	profile, err := s.store.Profile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		return domain.ErrEmptyUserName
	}
	profile.AvatarID = avatarID
	return s.store.SaveProfile(ctx, *profile)
}

// Logout wipes all local state: profile, snapshot, version, histories and the
// initialized marker. The next launch behaves like a first run.
func (s *ContentService) Logout(ctx context.Context) error {
	return s.store.Reset(ctx)
}
