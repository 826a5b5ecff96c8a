package executor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts proposal endpoints on the router. Approval
// goes through the same tier policy as the pipeline, so a denied
// action type stays denied even for a human.
func RegisterRoutes(r chi.Router, exec *Executor, queue *ProposalQueue) {
	r.Get("/api/proposals", func(w http.ResponseWriter, r *http.Request) {
		proposals, err := queue.Pending()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if proposals == nil {
			proposals = []Proposal{}
		}
		writeJSON(w, proposals)
	})

	r.Post("/api/proposals/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		action, err := queue.Approve(chi.URLParam(r, "id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrProposalNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		result, err := exec.ExecuteApproved(r.Context(), action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, result)
	})

	r.Post("/api/proposals/{id}/dismiss", func(w http.ResponseWriter, r *http.Request) {
		if err := queue.Dismiss(chi.URLParam(r, "id")); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrProposalNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
