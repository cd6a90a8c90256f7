package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"cinedex/internal/database"
	"cinedex/models"
	"cinedex/services/catalog"
)

type catalogService interface {
	List(ctx context.Context, q models.ListQuery) models.CatalogPage
	UserLists(ctx context.Context) []models.ListRef
}

var _ catalogService = (*catalog.Service)(nil)

// searchStore records search terms for the history endpoints.
type searchStore interface {
	Add(term string) error
	List() ([]string, error)
	Clear() error
}

var _ searchStore = (*database.SearchRepository)(nil)

// movieSources maps the /api/movies/{kind} path segment onto a list source.
var movieSources = map[string]models.SourceKind{
	"trending":   models.SourceTraktTrending,
	"featured":   models.SourceTraktFeatured,
	"collection": models.SourceTraktCollection,
	"watchlist":  models.SourceTraktWatchlist,
	"history":    models.SourceTraktHistory,
}

type CatalogHandler struct {
	Service catalogService
	Search  searchStore
}

func NewCatalogHandler(s catalogService, search searchStore) *CatalogHandler {
	return &CatalogHandler{Service: s, Search: search}
}

// Register mounts the catalog routes on r, typically an /api subrouter.
// Fixed segments are registered before the {kind} wildcard so "search" never
// resolves as a list kind.
func (h *CatalogHandler) Register(r *mux.Router) {
	r.HandleFunc("/movies/search", h.SearchMovies).Methods(http.MethodGet)
	r.HandleFunc("/movies/imdb/search", h.IMDBSearch).Methods(http.MethodGet)
	r.HandleFunc("/movies/imdb/{kind}", h.IMDBList).Methods(http.MethodGet)
	r.HandleFunc("/movies/{kind}", h.Movies).Methods(http.MethodGet)
	r.HandleFunc("/lists", h.Lists).Methods(http.MethodGet)
	r.HandleFunc("/lists/trakt/{user}/{id}", h.TraktList).Methods(http.MethodGet)
	r.HandleFunc("/lists/imdb/{id}", h.IMDBUserList).Methods(http.MethodGet)
	r.HandleFunc("/search/history", h.SearchHistory).Methods(http.MethodGet)
	r.HandleFunc("/search/history", h.ClearSearchHistory).Methods(http.MethodDelete)
}

func (h *CatalogHandler) Movies(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(mux.Vars(r)["kind"])
	src, ok := movieSources[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown list kind")
		return
	}
	page := h.Service.List(r.Context(), models.ListQuery{
		Source: src,
		Page:   queryPage(r),
		Token:  strings.TrimSpace(r.URL.Query().Get("token")),
	})
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}
	if err := h.Search.Add(term); err != nil {
		log.Printf("[catalog] failed to record search term %q: %v", term, err)
	}
	page := h.Service.List(r.Context(), models.ListQuery{
		Source: models.SourceTraktSearch,
		Query:  term,
		Page:   queryPage(r),
		Token:  strings.TrimSpace(r.URL.Query().Get("token")),
	})
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) IMDBList(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(mux.Vars(r)["kind"])
	page := h.Service.List(r.Context(), models.ListQuery{
		Source: models.SourceIMDBList,
		Query:  kind,
		Page:   queryPage(r),
	})
	writeJSON(w, http.StatusOK, page)
}

// IMDBSearch forwards the request's query parameters as advanced-search
// filters (year, genre, certificates and the like).
func (h *CatalogHandler) IMDBSearch(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if key == "page" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	page := h.Service.List(r.Context(), models.ListQuery{
		Source: models.SourceIMDBSearch,
		Params: params,
		Page:   queryPage(r),
	})
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) TraktList(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	page := h.Service.List(r.Context(), models.ListQuery{
		Source:   models.SourceTraktList,
		ListUser: vars["user"],
		ListID:   vars["id"],
		Page:     queryPage(r),
	})
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) IMDBUserList(w http.ResponseWriter, r *http.Request) {
	page := h.Service.List(r.Context(), models.ListQuery{
		Source: models.SourceIMDBUserList,
		ListID: mux.Vars(r)["id"],
		Page:   queryPage(r),
	})
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) Lists(w http.ResponseWriter, r *http.Request) {
	refs := h.Service.UserLists(r.Context())
	if refs == nil {
		refs = []models.ListRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func (h *CatalogHandler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	terms, err := h.Search.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"terms": terms})
}

func (h *CatalogHandler) ClearSearchHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Search.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
