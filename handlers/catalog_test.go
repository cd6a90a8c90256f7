package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"cinedex/models"
)

type fakeCatalogService struct {
	lastQuery models.ListQuery
	page      models.CatalogPage
	listRefs  []models.ListRef
}

func (f *fakeCatalogService) List(_ context.Context, q models.ListQuery) models.CatalogPage {
	f.lastQuery = q
	return f.page
}

func (f *fakeCatalogService) UserLists(context.Context) []models.ListRef {
	return f.listRefs
}

type fakeSearchStore struct {
	added   []string
	terms   []string
	cleared bool
}

func (f *fakeSearchStore) Add(term string) error {
	f.added = append(f.added, term)
	return nil
}

func (f *fakeSearchStore) List() ([]string, error) { return f.terms, nil }

func (f *fakeSearchStore) Clear() error {
	f.cleared = true
	return nil
}

func newCatalogRouter(svc *fakeCatalogService, store *fakeSearchStore) *mux.Router {
	r := mux.NewRouter()
	NewCatalogHandler(svc, store).Register(r.PathPrefix("/api").Subrouter())
	return r
}

func TestMoviesRoutesToSource(t *testing.T) {
	svc := &fakeCatalogService{page: models.CatalogPage{Page: 2}}
	router := newCatalogRouter(svc, &fakeSearchStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/trending?page=2&token=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	q := svc.lastQuery
	if q.Source != models.SourceTraktTrending || q.Page != 2 || q.Token != "3" {
		t.Errorf("query = %+v", q)
	}

	var page models.CatalogPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if page.Page != 2 {
		t.Errorf("page = %d, want 2", page.Page)
	}
}

func TestMoviesUnknownKind(t *testing.T) {
	router := newCatalogRouter(&fakeCatalogService{}, &fakeSearchStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSearchRecordsTerm(t *testing.T) {
	svc := &fakeCatalogService{}
	store := &fakeSearchStore{}
	router := newCatalogRouter(svc, store)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/search?q=alien", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.added) != 1 || store.added[0] != "alien" {
		t.Errorf("recorded terms = %v, want [alien]", store.added)
	}
	if svc.lastQuery.Source != models.SourceTraktSearch || svc.lastQuery.Query != "alien" {
		t.Errorf("query = %+v", svc.lastQuery)
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	store := &fakeSearchStore{}
	router := newCatalogRouter(&fakeCatalogService{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(store.added) != 0 {
		t.Errorf("blank search was recorded: %v", store.added)
	}
}

func TestIMDBSearchForwardsFilters(t *testing.T) {
	svc := &fakeCatalogService{}
	router := newCatalogRouter(svc, &fakeSearchStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/imdb/search?genres=action&year=1990,1999&page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	q := svc.lastQuery
	if q.Source != models.SourceIMDBSearch || q.Page != 2 {
		t.Fatalf("query = %+v", q)
	}
	if q.Params["genres"] != "action" || q.Params["year"] != "1990,1999" {
		t.Errorf("params = %v", q.Params)
	}
	if _, ok := q.Params["page"]; ok {
		t.Error("page leaked into the upstream filter set")
	}
}

func TestTraktListPathVars(t *testing.T) {
	svc := &fakeCatalogService{}
	router := newCatalogRouter(svc, &fakeSearchStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/lists/trakt/curator/best-heists", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	q := svc.lastQuery
	if q.Source != models.SourceTraktList || q.ListUser != "curator" || q.ListID != "best-heists" {
		t.Errorf("query = %+v", q)
	}
}

func TestListsReturnsEmptyArray(t *testing.T) {
	router := newCatalogRouter(&fakeCatalogService{}, &fakeSearchStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestSearchHistoryEndpoints(t *testing.T) {
	store := &fakeSearchStore{terms: []string{"alien", "heat"}}
	router := newCatalogRouter(&fakeCatalogService{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/search/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["terms"]) != 2 {
		t.Errorf("terms = %v", resp["terms"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/search/history", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if !store.cleared {
		t.Error("history was not cleared")
	}
}
