package server

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

//go:embed testpage.html
var testPageHTML []byte

// JournalStatus reports the lifecycle journal's write-behind buffer.
type JournalStatus interface {
	Len() int
	Capacity() int
	DroppedEvents() int64
}

type handlers struct {
	tasks     func() model.Stats
	journal   JournalStatus
	version   string
	startedAt time.Time
}

type taskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type journalHealth struct {
	Status  string `json:"status"`
	Depth   int    `json:"depth"`
	Dropped int64  `json:"dropped"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  int64          `json:"uptime_seconds"`
	Tasks   *taskCounts    `json:"tasks,omitempty"`
	Journal *journalHealth `json:"journal,omitempty"`
}

// handleHealth handles GET /health. The journal degrades the status when its
// buffer passes three quarters of capacity or has dropped events.
func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	}

	if h.tasks != nil {
		s := h.tasks()
		resp.Tasks = &taskCounts{
			Total:     s.Total,
			Pending:   s.Pending,
			Running:   s.Running,
			Completed: s.Completed,
			Failed:    s.Failed,
		}
	}

	if h.journal != nil {
		depth, capacity := h.journal.Len(), h.journal.Capacity()
		j := &journalHealth{Status: "ok", Depth: depth, Dropped: h.journal.DroppedEvents()}
		switch {
		case depth > capacity*3/4 || j.Dropped > 0:
			j.Status = "critical"
			resp.Status = "degraded"
		case depth > capacity/2:
			j.Status = "high"
		}
		resp.Journal = j
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *handlers) handleTestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(testPageHTML)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}
