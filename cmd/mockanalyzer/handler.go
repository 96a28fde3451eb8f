package main

import (
	"crypto/sha256"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var defectTypes = []string{"Cracked Screen", "Dead Pixels", "Deep Scratches", "Screen Burn-in"}

// analyzer answers like the real service, deriving the verdict from the image digest
type analyzer struct {
	failEvery int64         // answer HTTP 500 to every Nth request, 0 never
	latency   time.Duration // added to every request
	requests  atomic.Int64
}

func newRouter(a *analyzer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/analyze", a.handleAnalyze)
	return r
}

func (a *analyzer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	n := a.requests.Add(1)
	if a.latency > 0 {
		select {
		case <-time.After(a.latency):
		case <-r.Context().Done():
			return
		}
	}
	if a.failEvery > 0 && n%a.failEvery == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "model inference failed"})
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "multipart form expected"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "file is required"})
		return
	}
	defer file.Close()
	if strings.TrimSpace(r.FormValue("device_name")) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "device_name is required"})
		return
	}

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable file"})
		return
	}
	writeJSON(w, http.StatusOK, verdictFor(h.Sum(nil)))
}

// verdictFor maps a digest to a stable verdict
func verdictFor(digest []byte) map[string]interface{} {
	confidence := 0.80 + float64(digest[1]%20)/100
	if digest[0]%2 == 0 {
		return map[string]interface{}{
			"status":     "Clean",
			"type":       "No Defect",
			"confidence": confidence,
			"color":      "green",
		}
	}
	return map[string]interface{}{
		"status":     "Defect",
		"type":       defectTypes[int(digest[2])%len(defectTypes)],
		"confidence": confidence,
		"color":      "red",
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
