package trakt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	traktAPIBaseURL = "https://api.trakt.tv"
	traktAPIVersion = "2"

	// SearchPageSize is the upstream limit for search requests.
	SearchPageSize = 20
	// ListPageSize is the upstream limit for trending/history requests.
	ListPageSize = 40
)

// Client handles Trakt API interactions for catalog and metadata fetching.
type Client struct {
	httpc       *http.Client
	clientID    string
	accessToken string
}

// IDs holds external identifiers for a media item.
type IDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// Movie represents a Trakt movie with extended metadata.
type Movie struct {
	Title                 string   `json:"title"`
	Year                  int      `json:"year"`
	IDs                   IDs      `json:"ids"`
	Released              string   `json:"released,omitempty"`
	Genres                []string `json:"genres,omitempty"`
	Runtime               *int     `json:"runtime,omitempty"`
	Rating                *float64 `json:"rating,omitempty"`
	Votes                 *int     `json:"votes,omitempty"`
	Certification         string   `json:"certification,omitempty"`
	Overview              string   `json:"overview,omitempty"`
	Tagline               string   `json:"tagline,omitempty"`
	AvailableTranslations []string `json:"available_translations,omitempty"`
}

// ListEntry is one element of a movie list response. Trakt sometimes wraps the
// movie ({"movie": {...}, "collected_at": ...}) and sometimes returns it bare;
// both shapes decode into the same entry.
type ListEntry struct {
	Movie Movie
}

// UnmarshalJSON resolves the wrapped-or-bare union.
func (e *ListEntry) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Movie *Movie `json:"movie"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Movie != nil {
		e.Movie = *wrapped.Movie
		return nil
	}
	return json.Unmarshal(data, &e.Movie)
}

// Translation carries locale-specific title/tagline/overview overrides.
type Translation struct {
	Title    string `json:"title"`
	Overview string `json:"overview"`
	Tagline  string `json:"tagline"`
	Language string `json:"language"`
}

// People is the credits response for a movie.
type People struct {
	Cast []CastEntry `json:"cast"`
	Crew struct {
		Directing []CrewEntry `json:"directing"`
		Writing   []CrewEntry `json:"writing"`
	} `json:"crew"`
}

// CastEntry is one actor with the character they play.
type CastEntry struct {
	Character string `json:"character"`
	Person    Person `json:"person"`
}

// CrewEntry is one crew member with their job.
type CrewEntry struct {
	Job    string `json:"job"`
	Person Person `json:"person"`
}

// Person is a named person on Trakt.
type Person struct {
	Name string `json:"name"`
	IDs  IDs    `json:"ids"`
}

// List describes a custom Trakt list.
type List struct {
	Name string `json:"name"`
	IDs  struct {
		Trakt int    `json:"trakt"`
		Slug  string `json:"slug"`
	} `json:"ids"`
	User struct {
		Username string `json:"username"`
		IDs      struct {
			Slug string `json:"slug"`
		} `json:"ids"`
	} `json:"user,omitempty"`
}

// NewClient creates a new Trakt API client. A nil httpc falls back to a
// default client; production wiring passes one with the retrying transport.
func NewClient(clientID, accessToken string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpc:       httpc,
		clientID:    clientID,
		accessToken: accessToken,
	}
}

// HasCredentials reports whether an authenticated user is configured.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.accessToken != ""
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", traktAPIVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

// getJSON fetches path and decodes into out. Returns found=false (and a nil
// error) on 4xx or undecodable bodies; a *ProviderError on network failures
// and 5xx responses.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, traktAPIBaseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, &ProviderError{Op: op, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return false, &ProviderError{Op: op, Status: resp.StatusCode, Transient: true}
	case resp.StatusCode >= 400:
		// No data; the caller keeps its defaults.
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *Client) getEntries(ctx context.Context, op, path string) ([]ListEntry, error) {
	var entries []ListEntry
	found, err := c.getJSON(ctx, op, path, &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return entries, nil
}

// SearchMovies searches for movies by title. One page of SearchPageSize.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/search/movie?limit=%d&page=%d&extended=full&query=%s",
		SearchPageSize, page, url.QueryEscape(query))

	var results []struct {
		Type  string  `json:"type"`
		Score float64 `json:"score"`
		Movie *Movie  `json:"movie"`
	}
	found, err := c.getJSON(ctx, "search", path, &results)
	if err != nil || !found {
		return nil, err
	}

	movies := make([]Movie, 0, len(results))
	for _, r := range results {
		if r.Movie != nil {
			movies = append(movies, *r.Movie)
		}
	}
	return movies, nil
}

// Trending returns one page of globally trending movies.
func (c *Client) Trending(ctx context.Context, page int) ([]ListEntry, error) {
	if page < 1 {
		page = 1
	}
	return c.getEntries(ctx, "trending",
		fmt.Sprintf("/movies/trending?limit=%d&page=%d&extended=full", ListPageSize, page))
}

// Featured returns personalized movie recommendations.
func (c *Client) Featured(ctx context.Context) ([]ListEntry, error) {
	return c.getEntries(ctx, "featured",
		fmt.Sprintf("/recommendations/movies?limit=%d&extended=full", ListPageSize))
}

// Collection returns the authenticated user's collected movies.
func (c *Client) Collection(ctx context.Context) ([]ListEntry, error) {
	return c.getEntries(ctx, "collection", "/users/me/collection/movies?extended=full")
}

// Watchlist returns the authenticated user's watchlisted movies.
func (c *Client) Watchlist(ctx context.Context) ([]ListEntry, error) {
	return c.getEntries(ctx, "watchlist", "/users/me/watchlist/movies?extended=full")
}

// History returns one page of the authenticated user's watch history.
func (c *Client) History(ctx context.Context, page int) ([]ListEntry, error) {
	if page < 1 {
		page = 1
	}
	return c.getEntries(ctx, "history",
		fmt.Sprintf("/users/me/history/movies?limit=%d&page=%d&extended=full", ListPageSize, page))
}

// ListItems returns the movies on a user's custom list.
func (c *Client) ListItems(ctx context.Context, user, slug string) ([]ListEntry, error) {
	return c.getEntries(ctx, "list items",
		fmt.Sprintf("/users/%s/lists/%s/items?extended=full",
			url.PathEscape(user), url.PathEscape(slug)))
}

// UserLists returns the authenticated user's own custom lists.
func (c *Client) UserLists(ctx context.Context) ([]List, error) {
	var lists []List
	found, err := c.getJSON(ctx, "user lists", "/users/me/lists", &lists)
	if err != nil || !found {
		return nil, err
	}
	return lists, nil
}

// LikedLists returns lists the authenticated user has liked.
func (c *Client) LikedLists(ctx context.Context) ([]List, error) {
	var liked []struct {
		List List `json:"list"`
	}
	found, err := c.getJSON(ctx, "liked lists", "/users/likes/lists?limit=1000000", &liked)
	if err != nil || !found {
		return nil, err
	}
	lists := make([]List, 0, len(liked))
	for _, l := range liked {
		lists = append(lists, l.List)
	}
	return lists, nil
}

// MovieSummary returns extended metadata for one movie, or nil when the
// provider has no data for the id.
func (c *Client) MovieSummary(ctx context.Context, id string) (*Movie, error) {
	var movie Movie
	found, err := c.getJSON(ctx, "summary",
		fmt.Sprintf("/movies/%s?extended=full", url.PathEscape(id)), &movie)
	if err != nil || !found {
		return nil, err
	}
	return &movie, nil
}

// MovieTranslation returns the first translation for the given language, or
// nil when none exists.
func (c *Client) MovieTranslation(ctx context.Context, id, lang string) (*Translation, error) {
	var translations []Translation
	found, err := c.getJSON(ctx, "translation",
		fmt.Sprintf("/movies/%s/translations/%s", url.PathEscape(id), url.PathEscape(lang)),
		&translations)
	if err != nil || !found || len(translations) == 0 {
		return nil, err
	}
	return &translations[0], nil
}

// MoviePeople returns cast and crew for one movie, or nil when absent.
func (c *Client) MoviePeople(ctx context.Context, id string) (*People, error) {
	var people People
	found, err := c.getJSON(ctx, "people",
		fmt.Sprintf("/movies/%s/people", url.PathEscape(id)), &people)
	if err != nil || !found {
		return nil, err
	}
	return &people, nil
}

// LastActivity returns the timestamp of the newest account activity. The
// aggregation engine compares it against cached response times to decide
// whether a personal list must be refetched.
func (c *Client) LastActivity(ctx context.Context) (time.Time, error) {
	var activities struct {
		All time.Time `json:"all"`
	}
	found, err := c.getJSON(ctx, "last activity", "/sync/last_activities", &activities)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, nil
	}
	return activities.All, nil
}
