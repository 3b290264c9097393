package app

import (
	"context"

	"quiz-content-service/internal/domain"
)

// SnapshotStore persists the device-local view of the content catalog: the
// snapshot itself, its version tag, per-user result history, the cached update
// manifest, and the user profile/preferences. A single logical writer (the
// UpdateCoordinator) mutates content; reads may happen concurrently.
type SnapshotStore interface {
	// Version returns the stored content version, or "" if never set.
	Version(ctx context.Context) (string, error)
	SetVersion(ctx context.Context, version string) error

	// SaveSnapshot overwrites the prior snapshot entirely.
	SaveSnapshot(ctx context.Context, tree domain.SubjectTree) error
	// ReplaceSnapshot atomically overwrites snapshot and version together;
	// either both become visible or neither does.
	ReplaceSnapshot(ctx context.Context, tree domain.SubjectTree, version string) error

	// SubjectCounts returns question counts per subject, empty if no snapshot.
	SubjectCounts(ctx context.Context) (map[string]int, error)
	// Questions returns the subject's questions ordered by question ID, empty
	// if the subject is absent or no snapshot is saved.
	Questions(ctx context.Context, subject string) ([]domain.Question, error)

	// AppendResult prepends a result to the user's history (newest first).
	AppendResult(ctx context.Context, user string, result domain.QuizResult) error
	History(ctx context.Context, user string) ([]domain.QuizResult, error)

	CacheManifest(ctx context.Context, m domain.UpdateManifest) error
	// CachedManifest returns the last cached manifest, or nil if none.
	CachedManifest(ctx context.Context) (*domain.UpdateManifest, error)

	// Initialized reports whether first-run bootstrap has completed.
	Initialized(ctx context.Context) (bool, error)
	MarkInitialized(ctx context.Context) error

	SaveProfile(ctx context.Context, p domain.UserProfile) error
	// Profile returns the stored profile, or nil if none.
	Profile(ctx context.Context) (*domain.UserProfile, error)

	// Reset clears all local state: snapshot, version, histories, cached
	// manifest, profile and the initialized marker. Used on logout.
	Reset(ctx context.Context) error
}
