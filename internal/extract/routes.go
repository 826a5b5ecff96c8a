package extract

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the pending-artifact endpoint on the router.
func RegisterRoutes(r chi.Router, queue *PendingQueue) {
	r.Get("/api/artifacts/pending", func(w http.ResponseWriter, r *http.Request) {
		artifacts, err := queue.Load()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if artifacts == nil {
			artifacts = []Artifact{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(artifacts)
	})
}
