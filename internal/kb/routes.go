package kb

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts read-only knowledge endpoints on the router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/kb", func(r chi.Router) {
		r.Get("/entities", handleEntities(store))
		r.Get("/entities/{id}", handleEntity(store))
		r.Get("/query", handleQuery(store))
		r.Get("/search", handleSearch(store))
		r.Get("/decisions", handleDecisions(store))
	})
}

// entityView is the full per-entity response shape.
type entityView struct {
	Entity    Entity             `json:"entity"`
	Facts     []Fact             `json:"facts"`
	Relations []Relation         `json:"relations"`
	Domains   []DomainAssignment `json:"domains,omitempty"`
	History   []Fact             `json:"history,omitempty"`
}

func handleEntities(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := store.EntitySummaries(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func handleEntity(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := loadEntityView(r, store, chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "entity not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "name parameter is required", http.StatusBadRequest)
			return
		}
		entity, err := store.FindEntity(r.Context(), name)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "entity not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		view, err := loadEntityView(r, store, entity.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func loadEntityView(r *http.Request, store *Store, id string) (*entityView, error) {
	ctx := r.Context()
	entity, err := store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	facts, err := store.CurrentFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	relations, err := store.CurrentRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	domains, err := store.Domains(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &entityView{Entity: *entity, Facts: facts, Relations: relations, Domains: domains}
	if r.URL.Query().Get("history") == "true" {
		history, err := store.History(ctx, id)
		if err != nil {
			return nil, err
		}
		view.History = history
	}
	return view, nil
}

func handleSearch(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, "q parameter is required", http.StatusBadRequest)
			return
		}
		results, err := store.Search(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleDecisions(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "true"
		decisions, err := store.ListDecisions(r.Context(), all)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, decisions)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
