package app

import (
	"context"
	"time"

	"quiz-content-service/internal/domain"
)

// ContentSource is the remote half of the sync protocol: a versioned document
// service plus a static manifest URL. Every fetch is a single-shot operation;
// failures come back as ordinary errors that callers treat as absence of a
// value, never as something fatal.
type ContentSource interface {
	FetchVersion(ctx context.Context) (string, error)
	FetchSubjectTree(ctx context.Context) (domain.SubjectTree, error)
	// FetchManifest fetches the update manifest, giving up after timeout when
	// timeout > 0.
	FetchManifest(ctx context.Context, timeout time.Duration) (*domain.UpdateManifest, error)

	// RegisterUser records a new user remotely. Best effort: failures are
	// logged inside the implementation and never surfaced.
	RegisterUser(ctx context.Context, name string)
	// SubmitResult pushes a completed quiz result remotely. Best effort, no
	// retries.
	SubmitResult(ctx context.Context, user string, result domain.QuizResult)
}
