package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-content-service/internal/domain"
)

// Source is the HTTP implementation of app.ContentSource. The manifest lives
// at a static URL; version, subject tree, users and results are documents
// under an API base using the {base}/{path}.json convention.
type Source struct {
	client      *http.Client
	manifestURL string
	baseURL     string
}

func New(manifestURL, baseURL string) *Source {
	return &Source{
		client:      &http.Client{},
		manifestURL: manifestURL,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// manifestDocument is the hosted wire shape. The block flag travels as the
// string "TRUE"/"FALSE".
type manifestDocument struct {
	Database struct {
		Version   string `json:"version"`
		Message   string `json:"message"`
		Block     string `json:"block"`
		DBMessage string `json:"db_message"`
	} `json:"database"`
}

func (s *Source) FetchManifest(ctx context.Context, timeout time.Duration) (*domain.UpdateManifest, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var doc manifestDocument
	if err := s.getJSON(ctx, s.manifestURL, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestUnavailable, err)
	}
	return &domain.UpdateManifest{
		Version:      doc.Database.Version,
		Message:      doc.Database.Message,
		Blocked:      strings.EqualFold(doc.Database.Block, "TRUE"),
		UpdateNotice: doc.Database.DBMessage,
	}, nil
}

func (s *Source) FetchVersion(ctx context.Context) (string, error) {
	// The version document is a bare JSON string.
	var version string
	if err := s.getJSON(ctx, s.docURL("db_version"), &version); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrVersionUnavailable, err)
	}
	return version, nil
}

func (s *Source) FetchSubjectTree(ctx context.Context) (domain.SubjectTree, error) {
	var tree domain.SubjectTree
	if err := s.getJSON(ctx, s.docURL("subjects"), &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}
	return tree, nil
}

func (s *Source) RegisterUser(ctx context.Context, name string) {
	body := map[string]string{"name": name}
	if err := s.sendJSON(ctx, http.MethodPut, s.docURL("users/"+url.PathEscape(name)), body); err != nil {
		log.Printf("register user %q failed: %v", name, err)
	}
}

func (s *Source) SubmitResult(ctx context.Context, user string, result domain.QuizResult) {
	if err := s.sendJSON(ctx, http.MethodPost, s.docURL("results/"+url.PathEscape(user)), result); err != nil {
		log.Printf("submit result for %q failed: %v", user, err)
	}
}

func (s *Source) docURL(path string) string {
	return s.baseURL + "/" + path + ".json"
}

func (s *Source) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Source) sendJSON(ctx context.Context, method, rawURL string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
