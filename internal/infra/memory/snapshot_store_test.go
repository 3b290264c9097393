package memory

import (
	"context"
	"testing"

	"quiz-content-service/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	tree := domain.SubjectTree{
		"Math":    {"q1": {Prompt: "2+2?"}, "q2": {Prompt: "3*3?"}},
		"History": {"q1": {Prompt: "1969?"}},
	}
	if err := store.ReplaceSnapshot(ctx, tree, "1.4"); err != nil {
		t.Fatalf("replace snapshot: %v", err)
	}

	counts, err := store.SubjectCounts(ctx)
	if err != nil {
		t.Fatalf("subject counts: %v", err)
	}
	if counts["Math"] != 2 || counts["History"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if version, _ := store.Version(ctx); version != "1.4" {
		t.Fatalf("expected version 1.4, got %q", version)
	}

	questions, _ := store.Questions(ctx, "Math")
	if len(questions) != 2 || questions[0].Prompt != "2+2?" {
		t.Fatalf("expected ordered questions, got %+v", questions)
	}
	if questions, _ := store.Questions(ctx, "Unknown"); len(questions) != 0 {
		t.Fatalf("expected no questions for unknown subject")
	}
}

func TestEmptyStoreReads(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if counts, _ := store.SubjectCounts(ctx); len(counts) != 0 {
		t.Fatalf("expected empty counts, got %v", counts)
	}
	if version, _ := store.Version(ctx); version != "" {
		t.Fatalf("expected empty version, got %q", version)
	}
	if m, _ := store.CachedManifest(ctx); m != nil {
		t.Fatalf("expected no cached manifest")
	}
}

func TestHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	for _, ts := range []int64{1, 2, 3} {
		if err := store.AppendResult(ctx, "alice", domain.QuizResult{Subject: "Math", Timestamp: ts, Total: 1}); err != nil {
			t.Fatalf("append result: %v", err)
		}
	}
	history, _ := store.History(ctx, "alice")
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	if history[0].Timestamp != 3 || history[1].Timestamp != 2 || history[2].Timestamp != 1 {
		t.Fatalf("expected newest first, got %+v", history)
	}
}
