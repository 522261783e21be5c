package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"watchsync/models"
	"watchsync/services/library"
	"watchsync/services/localstore"
)

func newProgressRouter(t *testing.T) (*mux.Router, *library.Service) {
	t.Helper()
	store, err := localstore.NewStore(afero.NewMemMapFs(), "state")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	lib := library.NewService(store)
	h := NewProgressHandler(lib)

	r := mux.NewRouter()
	r.HandleFunc("/api/progress", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", h.Record).Methods(http.MethodPost)
	r.HandleFunc("/api/progress/continue", h.ListContinueWatching).Methods(http.MethodGet)
	r.HandleFunc("/api/progress/{mediaType}/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/progress/{mediaType}/{id}", h.Delete).Methods(http.MethodDelete)
	return r, lib
}

func TestProgressRecordAndGet(t *testing.T) {
	router, _ := newProgressRouter(t)

	payload := `{"id": 603, "type": "movie", "title": "The Matrix",
		"progress": {"watched": 1200, "duration": 8160}, "last_updated": 1700000000000}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(payload)))
	if rr.Code != http.StatusOK {
		t.Fatalf("record: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/progress/movie/603", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var rec models.ProgressRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.LastUpdated != 1700000000000 || rec.Progress.Watched != 1200 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestProgressRecordOlderUpdateReturnsStored(t *testing.T) {
	router, lib := newProgressRouter(t)

	if _, err := lib.RecordProgress(models.ProgressRecord{ID: 1, MediaType: models.MediaTypeMovie, LastUpdated: 2000,
		Progress: models.ProgressMarker{Watched: 500}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	payload := `{"id": 1, "type": "movie", "progress": {"watched": 100, "duration": 1000}, "last_updated": 1000}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(payload)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var rec models.ProgressRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.LastUpdated != 2000 {
		t.Fatalf("expected stored record returned, got last_updated=%d", rec.LastUpdated)
	}
}

func TestProgressRecordValidation(t *testing.T) {
	router, _ := newProgressRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/progress",
		strings.NewReader(`{"id": 0, "type": "movie"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProgressGetMissing(t *testing.T) {
	router, _ := newProgressRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/progress/movie/999", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestProgressDelete(t *testing.T) {
	router, lib := newProgressRouter(t)

	if _, err := lib.RecordProgress(models.ProgressRecord{ID: 7, MediaType: models.MediaTypeTV, LastUpdated: 1}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/progress/tv/7", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/progress/tv/7", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent record, got %d", rr.Code)
	}
}

func TestContinueWatchingOrder(t *testing.T) {
	router, lib := newProgressRouter(t)

	for _, rec := range []models.ProgressRecord{
		{ID: 1, MediaType: models.MediaTypeMovie, LastUpdated: 100},
		{ID: 2, MediaType: models.MediaTypeTV, LastUpdated: 300},
	} {
		if _, err := lib.RecordProgress(rec); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/progress/continue", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var items []models.ProgressRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 || items[0].ID != 2 {
		t.Fatalf("expected newest first, got %+v", items)
	}
}
