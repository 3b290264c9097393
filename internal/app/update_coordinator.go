package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-content-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LaunchState is the outcome of the launch-time sync pass.
type LaunchState string

const (
	// StateBlocked means the manifest carries the block flag; no content was
	// fetched and the UI should only show the manifest message.
	StateBlocked LaunchState = "blocked"
	// StateReady means the app is usable, possibly with empty content.
	StateReady LaunchState = "ready"
)

// LaunchResult summarizes one launch pass for the caller.
type LaunchResult struct {
	State        LaunchState
	BlockMessage string
	// UpdateNotice is set on steady-state launches when a newer remote version
	// exists. Content is never downloaded in the background; the notice is all
	// the user gets until they trigger a manual update.
	UpdateNotice string
	Bootstrapped bool
	Version      string
}

// UpdateCoordinator decides, once per launch plus on explicit user request,
// whether to bootstrap, refresh or leave the local snapshot alone. It owns no
// persistent state of its own; it only operates on the store and the source.
type UpdateCoordinator struct {
	store           SnapshotStore
	source          ContentSource
	manifestTimeout time.Duration

	mu sync.Mutex // serializes launch and manual updates
	sf singleflight.Group

	subMu       sync.Mutex
	subscribers map[chan string]struct{}
}

func NewUpdateCoordinator(store SnapshotStore, source ContentSource, manifestTimeout time.Duration) *UpdateCoordinator {
	return &UpdateCoordinator{
		store:           store,
		source:          source,
		manifestTimeout: manifestTimeout,
		subscribers:     make(map[chan string]struct{}),
	}
}

// Launch runs the single-pass sync decision: manifest fetch with cached
// fallback, block check, first-run bootstrap, or steady-state version check.
// Remote failures degrade to cached/local data and never produce an error;
// only local storage failures do.
func (c *UpdateCoordinator) Launch(ctx context.Context) (LaunchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	manifest, fresh := c.loadManifest(ctx)

	// The block check precedes everything else, including caching and any
	// content fetch.
	if manifest != nil && manifest.Blocked {
		return LaunchResult{State: StateBlocked, BlockMessage: manifest.Message}, nil
	}

	if manifest != nil && fresh {
		if err := c.store.CacheManifest(ctx, *manifest); err != nil {
			return LaunchResult{}, fmt.Errorf("cache manifest: %w", err)
		}
	}

	initialized, err := c.store.Initialized(ctx)
	if err != nil {
		return LaunchResult{}, fmt.Errorf("read initialized marker: %w", err)
	}

	result := LaunchResult{State: StateReady}

	if !initialized {
		bootstrapped, err := c.bootstrap(ctx)
		if err != nil {
			return LaunchResult{}, err
		}
		// A failed bootstrap still yields a usable, empty app; the next
		// opportunity to retry is the next launch or a manual update.
		result.Bootstrapped = bootstrapped
	}

	version, err := c.store.Version(ctx)
	if err != nil {
		return LaunchResult{}, fmt.Errorf("read local version: %w", err)
	}
	result.Version = version

	if initialized && manifest != nil && version != "" && domain.IsNewer(manifest.Version, version) {
		result.UpdateNotice = manifest.UpdateNotice
	}
	return result, nil
}

// loadManifest fetches the manifest with a bounded timeout, falling back to
// the cached copy. The second return value reports whether the manifest came
// fresh off the network.
func (c *UpdateCoordinator) loadManifest(ctx context.Context) (*domain.UpdateManifest, bool) {
	manifest, err := c.source.FetchManifest(ctx, c.manifestTimeout)
	if err == nil && manifest != nil {
		return manifest, true
	}
	if err != nil {
		log.Printf("manifest fetch failed, trying cache: %v", err)
	}
	cached, err := c.store.CachedManifest(ctx)
	if err != nil {
		log.Printf("cached manifest read failed: %v", err)
		return nil, false
	}
	return cached, false
}

// bootstrap downloads the initial snapshot. Version first, then the full
// tree; both must succeed before anything is persisted.
func (c *UpdateCoordinator) bootstrap(ctx context.Context) (bool, error) {
	version, err := c.source.FetchVersion(ctx)
	if err != nil || version == "" {
		log.Printf("bootstrap: remote version unavailable: %v", err)
		return false, nil
	}
	tree, err := c.source.FetchSubjectTree(ctx)
	if err != nil {
		log.Printf("bootstrap: subject tree unavailable: %v", err)
		return false, nil
	}
	if err := c.store.ReplaceSnapshot(ctx, tree, version); err != nil {
		return false, fmt.Errorf("persist bootstrap snapshot: %w", err)
	}
	if err := c.store.MarkInitialized(ctx); err != nil {
		return false, fmt.Errorf("mark initialized: %w", err)
	}
	return true, nil
}

// CheckForUpdates is the user-triggered manual update: fetch the remote
// version and, only if it is newer than the local one, download the full tree
// and replace snapshot and version atomically. On success subscribers are
// notified so in-memory views reload. Concurrent triggers collapse into one
// in-flight update. A canceled context abandons the update; nothing partial
// is ever persisted.
func (c *UpdateCoordinator) CheckForUpdates(ctx context.Context) (bool, string, error) {
	type outcome struct {
		updated bool
		version string
	}

	v, err, _ := c.sf.Do("manual-update", func() (interface{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		local, err := c.store.Version(ctx)
		if err != nil {
			return nil, fmt.Errorf("read local version: %w", err)
		}
		remote, err := c.source.FetchVersion(ctx)
		if err != nil || remote == "" {
			log.Printf("manual update: remote version unavailable: %v", err)
			return outcome{false, local}, nil
		}
		if local != "" && !domain.IsNewer(remote, local) {
			return outcome{false, local}, nil
		}

		tree, err := c.source.FetchSubjectTree(ctx)
		if err != nil {
			log.Printf("manual update: subject tree unavailable: %v", err)
			return outcome{false, local}, nil
		}
		if err := c.store.ReplaceSnapshot(ctx, tree, remote); err != nil {
			return nil, fmt.Errorf("persist updated snapshot: %w", err)
		}
		if err := c.store.MarkInitialized(ctx); err != nil {
			return nil, fmt.Errorf("mark initialized: %w", err)
		}
		c.notify(remote)
		return outcome{true, remote}, nil
	})
	if err != nil {
		return false, "", err
	}
	o := v.(outcome)
	return o.updated, o.version, nil
}

// Subscribe returns a channel that receives the new content version whenever
// a manual update replaces the snapshot, so cached reads can be reloaded.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *UpdateCoordinator) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 4)

	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.subMu.Unlock()
	}
	return ch, cancel
}

func (c *UpdateCoordinator) notify(version string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- version:
		default:
			// Drop the stale event rather than block the update on a slow
			// subscriber.
			select {
			case <-ch:
			default:
			}
			ch <- version
		}
	}
}
