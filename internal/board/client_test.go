package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientReadBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/board/items" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode([]Item{{ID: "t1", Title: "ship it", Status: "open"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sekret")
	items, err := client.ReadBoard(context.Background())
	if err != nil {
		t.Fatalf("ReadBoard: %v", err)
	}
	if len(items) != 1 || items[0].ID != "t1" {
		t.Fatalf("items = %+v", items)
	}
	if !items[0].Open() {
		t.Error("open item should report Open")
	}
}

func TestClientCreateItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/board/items" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["title"] != "new task" {
			t.Errorf("title = %q", payload["title"])
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "t9"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	id, err := client.CreateItem(context.Background(), "new task", "from pipeline")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if id != "t9" {
		t.Errorf("id = %q, want t9", id)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if err := client.AppendNote(context.Background(), "t1", "note"); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestTakeSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/board/items":
			json.NewEncoder(w).Encode([]Item{{ID: "t1", Title: "a", Status: "open"}})
		case "/docs":
			json.NewEncoder(w).Encode([]Doc{{ID: "d1", Title: "runbook"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	snap, err := TakeSnapshot(context.Background(), NewClient(srv.URL, ""))
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(snap.Items) != 1 || len(snap.Docs) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}
