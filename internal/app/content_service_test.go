package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-content-service/internal/app"
	"quiz-content-service/internal/domain"
	"quiz-content-service/internal/infra/memory"
)

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	source := memory.NewStaticContentSource("1.0", sampleTree(), nil)

	current := time.Unix(1000, 0)
	service := app.NewContentServiceWithClock(store, source, func() time.Time { return current })

	for i := 0; i < 3; i++ {
		if _, err := service.RecordResult(ctx, "alice", "Math", i, 3, []string{"a", "b", "a"}); err != nil {
			t.Fatalf("record result: %v", err)
		}
		current = current.Add(time.Minute)
	}

	history, err := service.History(ctx, "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 results, got %d", len(history))
	}
	if history[0].Timestamp <= history[1].Timestamp || history[1].Timestamp <= history[2].Timestamp {
		t.Fatalf("expected newest first, got timestamps %d, %d, %d",
			history[0].Timestamp, history[1].Timestamp, history[2].Timestamp)
	}
}

func TestGetQuizShufflesACopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	tree := sampleTree()
	if err := store.SaveSnapshot(ctx, tree); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	service := app.NewContentService(store, memory.NewStaticContentSource("1.0", tree, nil))

	quiz, err := service.GetQuiz(ctx, "Math")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz))
	}
	seen := map[string]bool{}
	for _, q := range quiz {
		seen[q.Prompt] = true
	}
	if !seen["2+2?"] || !seen["3*3?"] {
		t.Fatalf("shuffle lost questions: %v", seen)
	}

	// The stored snapshot keeps its canonical order.
	stored, _ := store.Questions(ctx, "Math")
	if stored[0].Prompt != "2+2?" || stored[1].Prompt != "3*3?" {
		t.Fatalf("stored order must be untouched, got %+v", stored)
	}
}

func TestGetQuizUnknownSubjectIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	service := app.NewContentService(store, memory.NewStaticContentSource("1.0", nil, nil))

	quiz, err := service.GetQuiz(ctx, "Astrology")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz) != 0 {
		t.Fatalf("expected empty quiz, got %d questions", len(quiz))
	}
}

func TestRecordResultForwardsRemoteBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	source := memory.NewStaticContentSource("1.0", sampleTree(), nil)
	service := app.NewContentService(store, source)

	if _, err := service.RecordResult(ctx, "bob", "Math", 2, 2, []string{"b", "a"}); err != nil {
		t.Fatalf("record result: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if results := source.SubmittedResults("bob"); len(results) == 1 {
			if results[0].Subject != "Math" || results[0].Score != 2 {
				t.Fatalf("unexpected forwarded result: %+v", results[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("result was never forwarded to the remote source")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	service := app.NewContentService(store, memory.NewStaticContentSource("1.0", nil, nil))

	results := []struct{ score, total int }{{3, 5}, {5, 5}, {2, 5}}
	for _, r := range results {
		if _, err := service.RecordResult(ctx, "carol", "Math", r.score, r.total, nil); err != nil {
			t.Fatalf("record result: %v", err)
		}
	}

	stats, err := service.Stats(ctx, "carol")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuizzes != 3 {
		t.Fatalf("expected 3 quizzes, got %d", stats.TotalQuizzes)
	}
	if stats.BestScore != 5 {
		t.Fatalf("expected best score 5, got %d", stats.BestScore)
	}
	want := float64(10) / float64(15) * 100
	if stats.Accuracy < want-0.01 || stats.Accuracy > want+0.01 {
		t.Fatalf("expected accuracy %.2f, got %.2f", want, stats.Accuracy)
	}
}

func TestCreateProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	source := memory.NewStaticContentSource("1.0", nil, nil)
	service := app.NewContentService(store, source)

	if err := service.CreateProfile(ctx, "", "avatar01"); err != domain.ErrEmptyUserName {
		t.Fatalf("expected empty-name error, got %v", err)
	}
	if err := service.CreateProfile(ctx, "dave", "avatar01"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	profile, _ := service.Profile(ctx)
	if profile == nil || profile.Name != "dave" || profile.AvatarID != "avatar01" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if registered := source.Registered(); len(registered) == 1 && registered[0] == "dave" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("user was never registered remotely")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := service.SetAvatar(ctx, "avatar02"); err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	profile, _ = service.Profile(ctx)
	if profile.AvatarID != "avatar02" {
		t.Fatalf("expected avatar02, got %q", profile.AvatarID)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	service := app.NewContentService(store, memory.NewStaticContentSource("1.0", nil, nil))

	_ = store.ReplaceSnapshot(ctx, sampleTree(), "1.2")
	_ = store.MarkInitialized(ctx)
	_ = service.CreateProfile(ctx, "erin", "avatar01")
	_, _ = service.RecordResult(ctx, "erin", "Math", 1, 2, nil)

	if err := service.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if profile, _ := service.Profile(ctx); profile != nil {
		t.Fatalf("expected no profile after logout")
	}
	if version, _ := store.Version(ctx); version != "" {
		t.Fatalf("expected no version after logout, got %q", version)
	}
	if initialized, _ := store.Initialized(ctx); initialized {
		t.Fatalf("logout must clear the initialized marker")
	}
	history, _ := service.History(ctx, "erin")
	if len(history) != 0 {
		t.Fatalf("expected empty history after logout, got %d", len(history))
	}
}
