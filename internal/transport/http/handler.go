package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-content-service/internal/app"
	"github.com/gorilla/websocket"
)

// Handler exposes the content service over a small REST surface and pushes
// content-reload events over a websocket, so an attached UI can refresh its
// subject list after a manual update.
type Handler struct {
	service     *app.ContentService
	coordinator *app.UpdateCoordinator
	launch      app.LaunchResult
	upgrader    websocket.Upgrader
}

func NewHandler(service *app.ContentService, coordinator *app.UpdateCoordinator, launch app.LaunchResult) *Handler {
	return &Handler{
		service:     service,
		coordinator: coordinator,
		launch:      launch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /subjects", h.subjects)
	mux.HandleFunc("GET /subjects/{subject}/quiz", h.quiz)
	mux.HandleFunc("POST /results", h.recordResult)
	mux.HandleFunc("GET /history", h.history)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("POST /update", h.update)
	mux.HandleFunc("/events", h.events)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"state":        h.launch.State,
		"version":      h.launch.Version,
		"blockMessage": h.launch.BlockMessage,
		"updateNotice": h.launch.UpdateNotice,
	})
}

func (h *Handler) subjects(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Subjects(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"subjects": counts})
}

func (h *Handler) quiz(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	questions, err := h.service.GetQuiz(r.Context(), subject)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(questions) == 0 {
		http.Error(w, "no questions for subject", http.StatusNotFound)
		return
	}
	writeJSON(w, questions)
}

type recordResultRequest struct {
	User    string   `json:"user"`
	Subject string   `json:"subject"`
	Score   int      `json:"score"`
	Total   int      `json:"total"`
	Answers []string `json:"answers"`
}

func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	var req recordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.User == "" || req.Subject == "" || req.Total <= 0 {
		http.Error(w, "user, subject and a positive total are required", http.StatusBadRequest)
		return
	}
	result, err := h.service.RecordResult(r.Context(), req.User, req.Subject, req.Score, req.Total, req.Answers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("write response: %v", err)
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	history, err := h.service.History(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, history)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	stats, err := h.service.Stats(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	updated, version, err := h.coordinator.CheckForUpdates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"updated": updated, "version": version})
}

type reloadEvent struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// events upgrades to a websocket and streams a contentUpdated event each time
// a manual update replaces the snapshot.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.coordinator.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for version := range updates {
			if err := conn.WriteJSON(reloadEvent{Type: "contentUpdated", Version: version}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Drain reads so we notice the peer closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-done
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
