package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-content-service/internal/app"
	"quiz-content-service/internal/domain"
	"quiz-content-service/internal/infra/memory"
	transport "quiz-content-service/internal/transport/http"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, source *memory.StaticContentSource) (*httptest.Server, *app.UpdateCoordinator) {
	t.Helper()
	store := memory.NewSnapshotStore()
	coordinator := app.NewUpdateCoordinator(store, source, time.Second)
	service := app.NewContentService(store, source)

	launch, err := coordinator.Launch(context.Background())
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	mux := http.NewServeMux()
	transport.NewHandler(service, coordinator, launch).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, coordinator
}

func testTree() domain.SubjectTree {
	return domain.SubjectTree{
		"Math": {
			"q1": {Prompt: "2+2?", Options: map[string]string{"a": "3", "b": "4"}, Answer: "b"},
			"q2": {Prompt: "3*3?", Options: map[string]string{"a": "9", "b": "6"}, Answer: "a"},
		},
	}
}

func TestSubjectsEndpoint(t *testing.T) {
	source := memory.NewStaticContentSource("1.0", testTree(), &domain.UpdateManifest{Version: "1.0"})
	server, _ := newTestServer(t, source)

	resp, err := http.Get(server.URL + "/subjects")
	if err != nil {
		t.Fatalf("get subjects: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Subjects map[string]int `json:"subjects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Subjects["Math"] != 2 {
		t.Fatalf("expected Math with 2 questions, got %v", payload.Subjects)
	}
}

func TestQuizEndpoint(t *testing.T) {
	source := memory.NewStaticContentSource("1.0", testTree(), &domain.UpdateManifest{Version: "1.0"})
	server, _ := newTestServer(t, source)

	resp, err := http.Get(server.URL + "/subjects/Math/quiz")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	defer resp.Body.Close()
	var questions []domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	missing, err := http.Get(server.URL + "/subjects/Astrology/quiz")
	if err != nil {
		t.Fatalf("get missing quiz: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subject, got %d", missing.StatusCode)
	}
}

func TestRecordAndHistory(t *testing.T) {
	source := memory.NewStaticContentSource("1.0", testTree(), &domain.UpdateManifest{Version: "1.0"})
	server, _ := newTestServer(t, source)

	body, _ := json.Marshal(map[string]interface{}{
		"user": "alice", "subject": "Math", "score": 1, "total": 2, "answers": []string{"b", "b"},
	})
	resp, err := http.Post(server.URL+"/results", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post result: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	historyResp, err := http.Get(server.URL + "/history?user=alice")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer historyResp.Body.Close()
	var history []domain.QuizResult
	if err := json.NewDecoder(historyResp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].Subject != "Math" || history[0].Score != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}

	bad, err := http.Post(server.URL+"/results", "application/json", strings.NewReader(`{"user":"","subject":"Math","total":0}`))
	if err != nil {
		t.Fatalf("post invalid result: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid result, got %d", bad.StatusCode)
	}
}

func TestUpdateEndpointAndReloadEvent(t *testing.T) {
	source := memory.NewStaticContentSource("1.0", testTree(), &domain.UpdateManifest{Version: "1.0"})
	server, _ := newTestServer(t, source)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to register its subscription before updating.
	time.Sleep(100 * time.Millisecond)

	source.SetContent("1.1", domain.SubjectTree{"Science": {"q1": {Prompt: "?"}}})

	resp, err := http.Post(server.URL+"/update", "application/json", nil)
	if err != nil {
		t.Fatalf("post update: %v", err)
	}
	defer resp.Body.Close()
	var result struct {
		Updated bool   `json:"updated"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if !result.Updated || result.Version != "1.1" {
		t.Fatalf("expected update to 1.1, got %+v", result)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type    string `json:"type"`
		Version string `json:"version"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read ws event: %v", err)
	}
	if event.Type != "contentUpdated" || event.Version != "1.1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
