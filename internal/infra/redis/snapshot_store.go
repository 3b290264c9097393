package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-content-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore is an app.SnapshotStore backed by Redis. Keys mirror the
// local namespaces: quiz_app_local_db:* for content and history,
// quiz_app_prefs:* for profile and markers. History lists use LPUSH so the
// newest-first ordering falls out of the data structure.
type SnapshotStore struct {
	client *redis.Client
}

const (
	localPrefix = "quiz_app_local_db:"
	prefsPrefix = "quiz_app_prefs:"

	keyVersion       = localPrefix + "db_version"
	keySubjectsData  = localPrefix + "subjects_data"
	keyManifestCache = localPrefix + "update_info_cache"
	historyKeyPrefix = localPrefix + "quiz_history_"

	keyUserName    = prefsPrefix + "user_name"
	keyUserAvatar  = prefsPrefix + "user_avatar"
	keyInitialized = prefsPrefix + "database_initialized"
)

func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

func (s *SnapshotStore) Version(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, keyVersion).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}
	return value, nil
}

func (s *SnapshotStore) SetVersion(ctx context.Context, version string) error {
	if err := s.client.Set(ctx, keyVersion, version, 0).Err(); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	return nil
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, tree domain.SubjectTree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keySubjectsData, data, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReplaceSnapshot sets snapshot and version in one transactional pipeline.
func (s *SnapshotStore) ReplaceSnapshot(ctx context.Context, tree domain.SubjectTree, version string) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keySubjectsData, data, 0)
	pipe.Set(ctx, keyVersion, version, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) SubjectCounts(ctx context.Context) (map[string]int, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Counts(), nil
}

func (s *SnapshotStore) Questions(ctx context.Context, subject string) ([]domain.Question, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return tree.OrderedQuestions(subject), nil
}

func (s *SnapshotStore) snapshot(ctx context.Context) (domain.SubjectTree, error) {
	raw, err := s.client.Get(ctx, keySubjectsData).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var tree domain.SubjectTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return tree, nil
}

func (s *SnapshotStore) AppendResult(ctx context.Context, user string, result domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.LPush(ctx, historyKeyPrefix+user, data).Err(); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (s *SnapshotStore) History(ctx context.Context, user string) ([]domain.QuizResult, error) {
	raw, err := s.client.LRange(ctx, historyKeyPrefix+user, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	history := make([]domain.QuizResult, 0, len(raw))
	for _, item := range raw {
		var result domain.QuizResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		history = append(history, result)
	}
	return history, nil
}

func (s *SnapshotStore) CacheManifest(ctx context.Context, m domain.UpdateManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := s.client.Set(ctx, keyManifestCache, data, 0).Err(); err != nil {
		return fmt.Errorf("write manifest cache: %w", err)
	}
	return nil
}

func (s *SnapshotStore) CachedManifest(ctx context.Context) (*domain.UpdateManifest, error) {
	raw, err := s.client.Get(ctx, keyManifestCache).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest cache: %w", err)
	}
	var m domain.UpdateManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest cache: %w", err)
	}
	return &m, nil
}

func (s *SnapshotStore) Initialized(ctx context.Context) (bool, error) {
	value, err := s.client.Get(ctx, keyInitialized).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read initialized marker: %w", err)
	}
	return value == "true", nil
}

func (s *SnapshotStore) MarkInitialized(ctx context.Context) error {
	if err := s.client.Set(ctx, keyInitialized, "true", 0).Err(); err != nil {
		return fmt.Errorf("write initialized marker: %w", err)
	}
	return nil
}

func (s *SnapshotStore) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyUserName, p.Name, 0)
	pipe.Set(ctx, keyUserAvatar, p.AvatarID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Profile(ctx context.Context) (*domain.UserProfile, error) {
	name, err := s.client.Get(ctx, keyUserName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	avatar, err := s.client.Get(ctx, keyUserAvatar).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	return &domain.UserProfile{Name: name, AvatarID: avatar}, nil
}

func (s *SnapshotStore) Reset(ctx context.Context) error {
	keys := []string{keyVersion, keySubjectsData, keyManifestCache, keyUserName, keyUserAvatar, keyInitialized}
	histories, err := s.client.Keys(ctx, historyKeyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("list histories: %w", err)
	}
	keys = append(keys, histories...)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}
