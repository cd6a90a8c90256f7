package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cinedex/internal/database"
	"cinedex/models"
	"cinedex/services/artwork"
	"cinedex/services/imdb"
	"cinedex/services/rescache"
	"cinedex/services/trakt"
	"cinedex/utils"
)

// referenceClockOffset shifts "now" backwards before any release-year
// comparison, so titles premiering around midnight UTC are not rejected a few
// hours early in western timezones.
const referenceClockOffset = 5 * time.Hour

// Response cache freshness tiers. Personal lists are effectively pinned until
// the account activity counter says they changed; public lists and searches
// age out on their own.
const (
	personalTTL     = 720 * time.Hour
	publicTTL       = 24 * time.Hour
	searchTTL       = time.Hour
	imdbUserListTTL = 3 * time.Hour
	imdbListTTL     = 720 * time.Hour
)

type metadataProvider interface {
	SearchMovies(ctx context.Context, query string, page int) ([]trakt.Movie, error)
	Trending(ctx context.Context, page int) ([]trakt.ListEntry, error)
	Featured(ctx context.Context) ([]trakt.ListEntry, error)
	Collection(ctx context.Context) ([]trakt.ListEntry, error)
	Watchlist(ctx context.Context) ([]trakt.ListEntry, error)
	History(ctx context.Context, page int) ([]trakt.ListEntry, error)
	ListItems(ctx context.Context, user, slug string) ([]trakt.ListEntry, error)
	UserLists(ctx context.Context) ([]trakt.List, error)
	LikedLists(ctx context.Context) ([]trakt.List, error)
	MovieSummary(ctx context.Context, id string) (*trakt.Movie, error)
	MovieTranslation(ctx context.Context, id, lang string) (*trakt.Translation, error)
	MoviePeople(ctx context.Context, id string) (*trakt.People, error)
	LastActivity(ctx context.Context) (time.Time, error)
	HasCredentials() bool
}

type artResolver interface {
	Resolve(ctx context.Context, imdbID, locale string) artwork.Bundle
}

type listScraper interface {
	HasUser() bool
	FetchListPage(ctx context.Context, pageURL string) ([]models.CatalogRecord, error)
	UserLists(ctx context.Context) ([]models.ListRef, error)
}

type metaStore interface {
	LookupMany(imdbIDs []string, lang, userKey string) (map[string]models.CatalogRecord, error)
	InsertMany(entries []database.MetacacheEntry) error
}

// Service is the aggregation engine: it resolves a list query to an upstream
// source, enriches the raw records through the metadata cache and providers,
// and hands back render-ready pages.
type Service struct {
	provider metadataProvider
	art      artResolver
	scraper  listScraper
	meta     metaStore
	cache    *rescache.Cache
	language string
	userKey  string
	now      func() time.Time
	log      *slog.Logger
}

// NewService wires the aggregation engine. userKey partitions the metadata
// cache between credential sets so artwork resolved with one account's keys is
// never served to another.
func NewService(provider metadataProvider, art artResolver, scraper listScraper, meta metaStore, cache *rescache.Cache, language, userKey string) *Service {
	if language == "" {
		language = "en"
	}
	return &Service{
		provider: provider,
		art:      art,
		scraper:  scraper,
		meta:     meta,
		cache:    cache,
		language: strings.ToLower(language),
		userKey:  userKey,
		now:      referenceNow,
		log:      slog.Default().With("component", "catalog"),
	}
}

func referenceNow() time.Time {
	return time.Now().UTC().Add(-referenceClockOffset)
}

// List fetches, enriches, filters and paginates one catalog page. Upstream
// failures degrade to an empty page rather than an error: the rendering layer
// always gets something it can show.
func (s *Service) List(ctx context.Context, q models.ListQuery) models.CatalogPage {
	if q.Page < 1 {
		q.Page = 1
	}

	raw, err := s.fetchRaw(ctx, q)
	if err != nil {
		s.log.Error("list fetch failed", "source", q.Source, "query", q.Query, "error", err)
		raw = rawList{}
	}

	records := s.enrichAll(ctx, raw.Records)
	filtered := s.filterRenderable(records)
	items, cont := paginate(filtered, q.Page, q.Token, raw.Next)
	if items == nil {
		items = []models.CatalogRecord{}
	}
	for i := range items {
		items[i].Poster = firstNonEmpty(items[i].Poster3, items[i].Poster, items[i].Poster2)
		items[i].Backdrop = firstNonEmpty(items[i].Fanart2, items[i].Fanart)
		if items[i].Votes != nil {
			items[i].VotesDisplay = utils.FormatVotes(*items[i].Votes)
		}
	}

	return models.CatalogPage{
		Items:       items,
		Total:       len(filtered),
		Page:        q.Page,
		Pagination:  cont,
		RefreshedAt: time.Now().UTC(),
	}
}

// UserLists assembles the directory of fetchable custom lists: the account's
// own lists, the lists it liked, and its IMDB lists, sorted by display name.
// Each provider failure drops that provider's section, never the whole
// directory.
func (s *Service) UserLists(ctx context.Context) []models.ListRef {
	var refs []models.ListRef

	if s.provider.HasCredentials() {
		var mine []trakt.List
		key := rescache.Key("trakt-user-lists", s.userKey)
		err := s.cache.Get(ctx, key, s.personalFreshness(ctx, key), &mine, func(ctx context.Context) (any, error) {
			return s.provider.UserLists(ctx)
		})
		if err != nil {
			s.log.Warn("user lists fetch failed", "error", err)
		}
		for _, l := range mine {
			refs = append(refs, models.ListRef{Name: l.Name, Source: models.SourceTraktList, User: "me", ID: l.IDs.Slug})
		}

		var liked []trakt.List
		key = rescache.Key("trakt-liked-lists", s.userKey)
		err = s.cache.Get(ctx, key, s.personalFreshness(ctx, key), &liked, func(ctx context.Context) (any, error) {
			return s.provider.LikedLists(ctx)
		})
		if err != nil {
			s.log.Warn("liked lists fetch failed", "error", err)
		}
		for _, l := range liked {
			user := firstNonEmpty(l.User.IDs.Slug, l.User.Username)
			refs = append(refs, models.ListRef{Name: l.Name, Source: models.SourceTraktList, User: user, ID: l.IDs.Slug})
		}
	}

	if s.scraper.HasUser() {
		var lists []models.ListRef
		key := rescache.Key("imdb-user-lists", s.userKey)
		err := s.cache.Get(ctx, key, imdbUserListTTL, &lists, func(ctx context.Context) (any, error) {
			return s.scraper.UserLists(ctx)
		})
		if err != nil {
			s.log.Warn("imdb lists fetch failed", "error", err)
		}
		refs = append(refs, lists...)
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return utils.TitleKey(refs[i].Name) < utils.TitleKey(refs[j].Name)
	})
	return refs
}

func (s *Service) fetchRaw(ctx context.Context, q models.ListQuery) (rawList, error) {
	key := s.cacheKey(q)
	var raw rawList
	err := s.cache.Get(ctx, key, s.freshness(ctx, q, key), &raw, func(ctx context.Context) (any, error) {
		return s.produce(ctx, q)
	})
	return raw, err
}

func (s *Service) cacheKey(q models.ListQuery) string {
	return rescache.Key(string(q.Source), q.Query, q.ListUser, q.ListID, q.Token, paramsKey(q.Params), s.language, s.userKey)
}

func paramsKey(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	return b.String()
}

// freshness picks the cache TTL for a query. Activity-coupled sources ask the
// provider whether anything changed since the cached copy was produced.
func (s *Service) freshness(ctx context.Context, q models.ListQuery, key string) time.Duration {
	switch q.Source {
	case models.SourceTraktSearch:
		return searchTTL
	case models.SourceTraktTrending, models.SourceTraktFeatured:
		return publicTTL
	case models.SourceTraktHistory:
		// The activity counter does not cover playback scrobbles, so history
		// is always refetched.
		return 0
	case models.SourceTraktCollection, models.SourceTraktWatchlist:
		return s.personalFreshness(ctx, key)
	case models.SourceTraktList:
		if q.ListUser == "" || q.ListUser == "me" {
			return s.personalFreshness(ctx, key)
		}
		// Someone else's list can change without touching our activity
		// counter.
		return 0
	case models.SourceIMDBUserList:
		return imdbUserListTTL
	case models.SourceIMDBList, models.SourceIMDBSearch:
		return imdbListTTL
	}
	return 0
}

func (s *Service) personalFreshness(ctx context.Context, key string) time.Duration {
	act, err := s.provider.LastActivity(ctx)
	if err != nil {
		s.log.Debug("activity check failed", "error", err)
		return personalTTL
	}
	if act.After(s.cache.Timestamp(key)) {
		return 0
	}
	return personalTTL
}

func (s *Service) produce(ctx context.Context, q models.ListQuery) (rawList, error) {
	refYear := s.now().Year()
	page := tokenPage(q.Token)

	switch q.Source {
	case models.SourceTraktSearch:
		movies, err := s.provider.SearchMovies(ctx, q.Query, page)
		if err != nil {
			return rawList{}, err
		}
		return rawList{
			Records: normalizeMovies(movies, refYear),
			Next:    nextPageToken(len(movies), trakt.SearchPageSize, page),
		}, nil

	case models.SourceTraktTrending:
		entries, err := s.provider.Trending(ctx, page)
		if err != nil {
			return rawList{}, err
		}
		return rawList{
			Records: normalizeEntries(entries, refYear),
			Next:    nextPageToken(len(entries), trakt.ListPageSize, page),
		}, nil

	case models.SourceTraktFeatured:
		entries, err := s.provider.Featured(ctx)
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: normalizeEntries(entries, refYear)}, nil

	case models.SourceTraktCollection:
		entries, err := s.provider.Collection(ctx)
		if err != nil {
			return rawList{}, err
		}
		records := normalizeEntries(entries, refYear)
		sort.SliceStable(records, func(i, j int) bool {
			return utils.TitleKey(records[i].Title) < utils.TitleKey(records[j].Title)
		})
		return rawList{Records: records}, nil

	case models.SourceTraktWatchlist:
		entries, err := s.provider.Watchlist(ctx)
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: normalizeEntries(entries, refYear)}, nil

	case models.SourceTraktHistory:
		entries, err := s.provider.History(ctx, page)
		if err != nil {
			return rawList{}, err
		}
		return rawList{
			Records: normalizeEntries(entries, refYear),
			Next:    nextPageToken(len(entries), trakt.ListPageSize, page),
		}, nil

	case models.SourceTraktList:
		entries, err := s.provider.ListItems(ctx, q.ListUser, q.ListID)
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: normalizeEntries(entries, refYear)}, nil

	case models.SourceIMDBList:
		u := imdb.BuiltinListURL(q.Query)
		if u == "" {
			return rawList{}, fmt.Errorf("unknown builtin list %q", q.Query)
		}
		records, err := s.scraper.FetchListPage(ctx, u)
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: records}, nil

	case models.SourceIMDBUserList:
		records, err := s.scraper.FetchListPage(ctx, imdb.UserListURL(q.ListID))
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: records}, nil

	case models.SourceIMDBSearch:
		records, err := s.scraper.FetchListPage(ctx, imdb.SearchURL(q.Params))
		if err != nil {
			return rawList{}, err
		}
		return rawList{Records: records}, nil
	}

	return rawList{}, fmt.Errorf("unsupported source %q", q.Source)
}

// filterRenderable drops records that cannot be rendered: no canonical id, or
// a release year the reference clock has not reached yet.
func (s *Service) filterRenderable(records []models.CatalogRecord) []models.CatalogRecord {
	refYear := s.now().Year()
	out := make([]models.CatalogRecord, 0, len(records))
	for _, r := range records {
		if !r.HasCanonicalID() || r.Year > refYear {
			continue
		}
		out = append(out, r)
	}
	return out
}

// paginate slices one rendered page out of the filtered sequence. The
// continuation either points deeper into this sequence (NextPage advances,
// token unchanged) or hands over the provider's cursor for the next upstream
// page once the sequence is exhausted.
func paginate(items []models.CatalogRecord, page int, token, upstreamNext string) ([]models.CatalogRecord, models.Continuation) {
	start := (page - 1) * PageSize
	if start >= len(items) {
		if upstreamNext != "" {
			return nil, models.Continuation{HasNext: true, NextPage: 1, NextToken: upstreamNext}
		}
		return nil, models.Continuation{}
	}
	end := min(start+PageSize, len(items))
	slice := items[start:end]
	switch {
	case end < len(items):
		return slice, models.Continuation{HasNext: true, NextPage: page + 1, NextToken: token}
	case upstreamNext != "":
		return slice, models.Continuation{HasNext: true, NextPage: 1, NextToken: upstreamNext}
	default:
		return slice, models.Continuation{}
	}
}
