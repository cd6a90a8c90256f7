package models

import "time"

// CastMember is one ordered (actor, role) pair from the credits of a title.
type CastMember struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// CatalogRecord is one movie flowing through the aggregation pipeline.
//
// String fields use "" for "not resolved"; numeric fields use nil pointers so a
// legitimate zero (e.g. a zero-minute short) never collides with "absent". The
// record is only considered renderable once IMDB carries a tt-prefixed id.
type CatalogRecord struct {
	Title         string       `json:"title"`
	OriginalTitle string       `json:"originalTitle,omitempty"`
	Year          int          `json:"year,omitempty"`
	IMDB          string       `json:"imdb"`           // canonical id, tt-prefixed
	TMDB          string       `json:"tmdb,omitempty"` // "0" when the provider has none
	TVDB          string       `json:"tvdb,omitempty"` // always "0" for movies
	Premiered     string       `json:"premiered,omitempty"` // YYYY-MM-DD
	Genres        string       `json:"genres,omitempty"`    // display string, " / " joined
	Runtime       *int         `json:"runtime,omitempty"`   // minutes
	Rating        *float64     `json:"rating,omitempty"`    // 0-10
	Votes         *int         `json:"votes,omitempty"`
	VotesDisplay  string       `json:"votesDisplay,omitempty"` // grouped, e.g. "650,000"
	Certification string       `json:"certification,omitempty"`
	Plot          string       `json:"plot,omitempty"`
	Tagline       string       `json:"tagline,omitempty"`
	Cast          []CastMember `json:"cast,omitempty"`
	Director      string       `json:"director,omitempty"` // comma-joined
	Writer        string       `json:"writer,omitempty"`   // comma-joined

	Poster    string `json:"poster,omitempty"`
	Poster2   string `json:"poster2,omitempty"`
	Poster3   string `json:"poster3,omitempty"`
	Banner    string `json:"banner,omitempty"`
	Fanart    string `json:"fanart,omitempty"`
	Fanart2   string `json:"fanart2,omitempty"`
	ClearLogo string `json:"clearlogo,omitempty"`
	ClearArt  string `json:"clearart,omitempty"`
	Backdrop  string `json:"backdrop,omitempty"` // post-merge default, Fanart2 then Fanart

	// NextToken is the continuation URL for activity-sourced lists. It is
	// carried on every record of a page, matching the upstream response shape.
	NextToken string `json:"-"`

	// Enriched marks a record already resolved from the metadata cache; the
	// worker pool skips provider calls for it.
	Enriched bool `json:"-"`
}

// HasCanonicalID reports whether the record carries a usable tt-prefixed id.
// Records failing this never survive the final filter.
func (r *CatalogRecord) HasCanonicalID() bool {
	return len(r.IMDB) > 2 && r.IMDB[:2] == "tt"
}

// SourceKind selects which upstream path the aggregation engine takes.
type SourceKind string

const (
	SourceTraktSearch     SourceKind = "trakt-search"
	SourceTraktTrending   SourceKind = "trakt-trending"
	SourceTraktFeatured   SourceKind = "trakt-featured"
	SourceTraktCollection SourceKind = "trakt-collection"
	SourceTraktWatchlist  SourceKind = "trakt-watchlist"
	SourceTraktHistory    SourceKind = "trakt-history"
	SourceTraktList       SourceKind = "trakt-list"
	SourceIMDBList        SourceKind = "imdb-list"
	SourceIMDBUserList    SourceKind = "imdb-user-list"
	SourceIMDBSearch      SourceKind = "imdb-search"
)

// ListQuery is the immutable parameter bag for one catalog request.
type ListQuery struct {
	Source SourceKind
	// Query is the search term (search sources) or the builtin list type
	// (imdb-list).
	Query string
	// ListUser/ListID identify a trakt custom list or an IMDB user list.
	ListUser string
	ListID   string
	// Params are the raw IMDB search parameters for imdb-search.
	Params map[string]string
	// Page is 1-based; zero means page 1.
	Page int
	// Token is the upstream cursor from a previous Continuation, for sources
	// that page on the provider side.
	Token string
}

// Continuation describes how a caller fetches the page after this one.
type Continuation struct {
	HasNext   bool   `json:"has_next"`
	NextPage  int    `json:"next_page,omitempty"`
	NextToken string `json:"next_token,omitempty"`
}

// CatalogPage is the paginated result handed to the rendering layer.
type CatalogPage struct {
	Items       []CatalogRecord `json:"items"`
	Total       int             `json:"total"`
	Page        int             `json:"page"`
	Pagination  Continuation    `json:"pagination"`
	RefreshedAt time.Time       `json:"refreshedAt"`
}

// ListRef points at a fetchable list in the directory of user lists.
type ListRef struct {
	Name   string     `json:"name"`
	Source SourceKind `json:"source"`
	User   string     `json:"user,omitempty"`
	ID     string     `json:"id"`
}
