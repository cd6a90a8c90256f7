package catalog

import (
	"context"
	"strconv"

	"github.com/sourcegraph/conc/pool"

	"cinedex/internal/database"
	"cinedex/models"
	"cinedex/services/trakt"
	"cinedex/utils"
)

// enrichBatchSize bounds how many records are resolved concurrently. The pool
// drains one batch completely before the next one starts, so at most this many
// provider calls are in flight and cache writes land at batch boundaries.
const enrichBatchSize = 40

// enrichAll fills in full metadata and artwork for every record, writing each
// result back into its original slot. Records already satisfied from the
// metadata cache are skipped; freshly resolved ones are persisted at the end
// of their batch unless artwork resolution flagged them incomplete.
func (s *Service) enrichAll(ctx context.Context, records []models.CatalogRecord) []models.CatalogRecord {
	if len(records) == 0 {
		return records
	}

	ids := make([]string, 0, len(records))
	for i := range records {
		if records[i].HasCanonicalID() {
			ids = append(ids, records[i].IMDB)
		}
	}
	cached, err := s.meta.LookupMany(ids, s.language, s.userKey)
	if err != nil {
		s.log.Warn("metadata cache lookup failed", "error", err)
		cached = nil
	}
	for i := range records {
		if hit, ok := cached[records[i].IMDB]; ok {
			token := records[i].NextToken
			records[i] = hit
			records[i].NextToken = token
			records[i].Enriched = true
		}
	}

	for start := 0; start < len(records); start += enrichBatchSize {
		end := min(start+enrichBatchSize, len(records))
		batch := records[start:end]

		// One buffer slot per worker; merged after the barrier so the
		// repository sees a single transaction per batch.
		pending := make([]*database.MetacacheEntry, len(batch))
		p := pool.New().WithMaxGoroutines(len(batch))
		for i := range batch {
			p.Go(func() {
				rec, entry := s.enrichOne(ctx, batch[i])
				batch[i] = rec
				pending[i] = entry
			})
		}
		p.Wait()

		entries := make([]database.MetacacheEntry, 0, len(pending))
		for _, e := range pending {
			if e != nil {
				entries = append(entries, *e)
			}
		}
		if len(entries) > 0 {
			if err := s.meta.InsertMany(entries); err != nil {
				s.log.Warn("metadata cache insert failed", "count", len(entries), "error", err)
			}
		}
	}
	return records
}

// enrichOne resolves one record against the metadata and artwork providers.
// Provider failures leave the record as it arrived; a provider answering
// "no data" for one field set never blocks the remaining ones. The returned
// cache entry is nil whenever the record should not be persisted.
func (s *Service) enrichOne(ctx context.Context, rec models.CatalogRecord) (models.CatalogRecord, *database.MetacacheEntry) {
	if rec.Enriched || !rec.HasCanonicalID() {
		return rec, nil
	}

	summary, err := s.provider.MovieSummary(ctx, rec.IMDB)
	if err != nil {
		s.log.Debug("summary fetch failed", "imdb", rec.IMDB, "error", err)
		return rec, nil
	}
	if summary != nil {
		rec = s.applySummary(rec, summary)
	}

	people, err := s.provider.MoviePeople(ctx, rec.IMDB)
	if err != nil {
		s.log.Debug("credits fetch failed", "imdb", rec.IMDB, "error", err)
		return rec, nil
	}
	if people != nil {
		rec.Director = directedBy(people.Crew.Directing, "Director")
		rec.Writer = directedBy(people.Crew.Writing, "Writer", "Screenplay", "Author")
		rec.Cast = castMembers(people.Cast)
	}

	if s.language != "en" && summary != nil && hasTranslation(summary.AvailableTranslations, s.language) {
		tr, err := s.provider.MovieTranslation(ctx, rec.IMDB, s.language)
		if err != nil {
			s.log.Debug("translation fetch failed", "imdb", rec.IMDB, "lang", s.language, "error", err)
			return rec, nil
		}
		if tr != nil {
			rec.Title = firstNonEmpty(utils.CleanText(tr.Title), rec.Title)
			rec.Plot = firstNonEmpty(utils.CleanText(tr.Overview), rec.Plot)
			rec.Tagline = firstNonEmpty(utils.CleanText(tr.Tagline), rec.Tagline)
		}
	}

	art := s.art.Resolve(ctx, rec.IMDB, s.language)
	rec.Poster2 = art.Poster2
	rec.Poster3 = art.Poster3
	rec.Banner = art.Banner
	rec.Fanart = art.Fanart
	rec.Fanart2 = art.Fanart2
	rec.ClearLogo = art.ClearLogo
	rec.ClearArt = art.ClearArt

	if art.Missing {
		// Incomplete artwork must not be frozen into the cache; the next
		// request retries the resolution.
		return rec, nil
	}

	stored := rec
	stored.NextToken = ""
	stored.Enriched = false
	return rec, &database.MetacacheEntry{
		IMDB:    rec.IMDB,
		TVDB:    "0",
		Lang:    s.language,
		UserKey: s.userKey,
		Item:    stored,
	}
}

// applySummary overlays the provider's extended metadata onto the record,
// keeping whatever the list source already supplied when the summary has
// nothing better.
func (s *Service) applySummary(rec models.CatalogRecord, m *trakt.Movie) models.CatalogRecord {
	rec.Title = firstNonEmpty(utils.CleanText(m.Title), rec.Title)
	rec.OriginalTitle = firstNonEmpty(utils.CleanText(m.Title), rec.OriginalTitle)
	if m.Year > 0 {
		rec.Year = m.Year
	}
	if id := normalizeIMDBID(m.IDs.IMDB); id != "" {
		rec.IMDB = id
	}
	if m.IDs.TMDB > 0 {
		rec.TMDB = strconv.Itoa(m.IDs.TMDB)
	}
	rec.Premiered = firstNonEmpty(premieredDate(m.Released), rec.Premiered)
	rec.Genres = firstNonEmpty(utils.JoinGenres(m.Genres), rec.Genres)
	rec.Runtime, _ = firstValid(notNil[int], lazy(m.Runtime), lazy(rec.Runtime))
	rec.Votes, _ = firstValid(notNil[int], lazy(m.Votes), lazy(rec.Votes))
	if rating, ok := firstValid(notNil[float64], lazy(m.Rating), lazy(rec.Rating)); ok && *rating > 0 {
		rec.Rating = rating
	}
	rec.Certification = firstNonEmpty(m.Certification, rec.Certification)
	rec.Plot = firstNonEmpty(utils.CleanText(m.Overview), rec.Plot)
	rec.Tagline = firstNonEmpty(utils.CleanText(m.Tagline), rec.Tagline)
	return rec
}
