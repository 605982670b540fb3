// Package httpapi exposes the progression services over a small REST
// surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/bloom-app/progression/internal/app"
	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/metrics"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the progression REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/healthz", h.health)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.Username) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username is required"))
		return
	}

	u, err := h.app.Users.Create(r.Context(), payload.Username)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u, err := h.app.Users.Get(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
		return
	}

	resource := parts[1]
	switch resource {
	case "progress":
		h.userProgress(w, r, userID)
	case "stats":
		h.userStats(w, r, userID)
	case "activity":
		h.userActivity(w, r, userID)
	case "awards":
		h.userAwards(w, r, userID)
	case "tasks":
		h.userTasks(w, r, userID, parts[2:])
	case "sessions":
		h.userSessions(w, r, userID, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) userProgress(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, err := h.app.Award.Progress(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) userStats(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sum, err := h.app.Stats.Summarize(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handler) userActivity(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := h.app.Award.RecentActivity(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entriesPayload(entries))
}

// userAwards grants manual XP. Task and session awards flow through their
// own handlers; this endpoint exists for out-of-band grants only.
func (h *handler) userAwards(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Amount int `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Award.AwardManual(r.Context(), userID, payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date"`
}

func (p taskPayload) toTask(id string) (activity.Task, error) {
	t := activity.Task{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Priority:    activity.TaskPriority(p.Priority),
		Status:      activity.TaskStatus(p.Status),
	}
	if p.DueDate != "" {
		due, err := time.Parse("2006-01-02", p.DueDate)
		if err != nil {
			return activity.Task{}, fmt.Errorf("invalid due_date %q", p.DueDate)
		}
		t.DueDate = due
	}
	return t, nil
}

func (h *handler) userTasks(w http.ResponseWriter, r *http.Request, userID string, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		switch r.Method {
		case http.MethodPost:
			var payload taskPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			t, err := payload.toTask("")
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			created, err := h.app.Tasks.Create(r.Context(), userID, t)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)

		case http.MethodGet:
			tasks, err := h.app.Tasks.List(r.Context(), userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tasks)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	taskID := rest[0]
	switch r.Method {
	case http.MethodGet:
		t, err := h.app.Tasks.Get(r.Context(), userID, taskID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodPut:
		var payload taskPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		t, err := payload.toTask(taskID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, award, err := h.app.Tasks.Update(r.Context(), userID, t)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"task":   updated,
			"reward": award,
		})

	case http.MethodDelete:
		if err := h.app.Tasks.Delete(r.Context(), userID, taskID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userSessions(w http.ResponseWriter, r *http.Request, userID string, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var payload struct {
			Kind            string `json:"kind"`
			TaskID          string `json:"task_id"`
			DurationMinutes int    `json:"duration_minutes"`
			CompletedAt     string `json:"completed_at"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		sess := activity.FocusSession{
			TaskID:          payload.TaskID,
			Kind:            activity.SessionKind(payload.Kind),
			DurationMinutes: payload.DurationMinutes,
		}
		if payload.CompletedAt != "" {
			completed, err := time.Parse(time.RFC3339, payload.CompletedAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid completed_at %q", payload.CompletedAt))
				return
			}
			sess.CompletedAt = completed
		}

		saved, award, err := h.app.Sessions.Record(r.Context(), userID, sess)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"session": saved,
			"reward":  award,
		})
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.app.Sessions.Get(r.Context(), userID, rest[0])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type entryView struct {
	ID          string `json:"id"`
	XPAmount    int    `json:"xp_amount"`
	Kind        string `json:"activity_kind"`
	ActivityRef string `json:"activity_ref,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func entriesPayload(entries []progression.Entry) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			ID:          e.ID,
			XPAmount:    e.XPAmount,
			Kind:        string(e.Kind),
			ActivityRef: e.ActivityRef,
			CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progression.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, progression.ErrNotOwned):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, progression.ErrNotQualifying):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, progression.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
