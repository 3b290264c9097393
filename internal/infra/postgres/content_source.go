package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"quiz-content-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ContentSource serves content from a Postgres-backed document store. Paths
// follow the remote schema: db_version, subjects/{subject}/{questionID},
// users/{name}, results/{user}/{autoID}, plus a manifest document. Each row
// holds one JSONB doc.
type ContentSource struct {
	pool *pgxpool.Pool
}

func NewContentSource(pool *pgxpool.Pool) *ContentSource {
	return &ContentSource{pool: pool}
}

func (s *ContentSource) FetchVersion(ctx context.Context) (string, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE path = 'db_version'`).Scan(&raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrVersionUnavailable, err)
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrVersionUnavailable, err)
	}
	return version, nil
}

func (s *ContentSource) FetchSubjectTree(ctx context.Context) (domain.SubjectTree, error) {
	rows, err := s.pool.Query(ctx, `SELECT path, doc FROM documents WHERE path LIKE 'subjects/%'`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}
	defer rows.Close()

	tree := make(domain.SubjectTree)
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
		}
		// subjects/{subject}/{questionID}
		parts := strings.Split(path, "/")
		if len(parts) != 3 {
			continue
		}
		var question domain.Question
		if err := json.Unmarshal(raw, &question); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
		}
		subject, questionID := parts[1], parts[2]
		if tree[subject] == nil {
			tree[subject] = make(map[string]domain.Question)
		}
		tree[subject][questionID] = question
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}
	return tree, nil
}

func (s *ContentSource) FetchManifest(ctx context.Context, timeout time.Duration) (*domain.UpdateManifest, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE path = 'manifest'`).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestUnavailable, err)
	}
	// Same wire shape as the hosted manifest document.
	var doc struct {
		Database struct {
			Version   string `json:"version"`
			Message   string `json:"message"`
			Block     string `json:"block"`
			DBMessage string `json:"db_message"`
		} `json:"database"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestUnavailable, err)
	}
	return &domain.UpdateManifest{
		Version:      doc.Database.Version,
		Message:      doc.Database.Message,
		Blocked:      strings.EqualFold(doc.Database.Block, "TRUE"),
		UpdateNotice: doc.Database.DBMessage,
	}, nil
}

func (s *ContentSource) RegisterUser(ctx context.Context, name string) {
	doc, _ := json.Marshal(map[string]string{"name": name})
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (path, doc) VALUES ($1, $2::jsonb) ON CONFLICT (path) DO NOTHING`,
		"users/"+name, string(doc))
	if err != nil {
		log.Printf("register user %q failed: %v", name, err)
	}
}

func (s *ContentSource) SubmitResult(ctx context.Context, user string, result domain.QuizResult) {
	doc, err := json.Marshal(result)
	if err != nil {
		log.Printf("submit result for %q failed: %v", user, err)
		return
	}
	path := fmt.Sprintf("results/%s/%d", user, time.Now().UnixNano())
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO documents (path, doc) VALUES ($1, $2::jsonb)`, path, string(doc)); err != nil {
		log.Printf("submit result for %q failed: %v", user, err)
	}
}
