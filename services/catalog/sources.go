package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"cinedex/models"
	"cinedex/services/trakt"
	"cinedex/utils"
)

// PageSize is the number of records in one rendered catalog page.
const PageSize = 20

var (
	datePattern  = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	digitPattern = regexp.MustCompile(`\d+`)
)

// normalizeIMDBID reduces whatever identifier shape a provider hands back to
// the canonical tt-prefixed form, or "" if no numeric part is present.
func normalizeIMDBID(id string) string {
	digits := strings.Join(digitPattern.FindAllString(id, -1), "")
	if digits == "" {
		return ""
	}
	return "tt" + digits
}

// premieredDate extracts the YYYY-MM-DD portion of a release timestamp.
func premieredDate(released string) string {
	return datePattern.FindString(released)
}

// rawList is the cacheable result of one upstream fetch: the normalized
// records plus the cursor for the next upstream page, if any.
type rawList struct {
	Records []models.CatalogRecord `json:"records"`
	Next    string                 `json:"next"`
}

// movieRecord maps one provider movie onto a catalog record. It returns
// false when the movie is unusable: no title, no year, a year in the
// future of the reference clock, or no canonical identifier.
func movieRecord(m trakt.Movie, refYear int) (models.CatalogRecord, bool) {
	title := utils.CleanText(m.Title)
	if title == "" || m.Year == 0 || m.Year > refYear {
		return models.CatalogRecord{}, false
	}
	imdb := normalizeIMDBID(m.IDs.IMDB)
	if imdb == "" {
		return models.CatalogRecord{}, false
	}

	rec := models.CatalogRecord{
		Title:         title,
		OriginalTitle: title,
		Year:          m.Year,
		IMDB:          imdb,
		TMDB:          strconv.Itoa(m.IDs.TMDB),
		TVDB:          "0",
		Premiered:     premieredDate(m.Released),
		Genres:        utils.JoinGenres(m.Genres),
		Runtime:       m.Runtime,
		Votes:         m.Votes,
		Certification: m.Certification,
		Plot:          utils.CleanText(m.Overview),
		Tagline:       utils.CleanText(m.Tagline),
	}
	if m.Rating != nil && *m.Rating > 0 {
		rec.Rating = m.Rating
	}
	return rec, true
}

// normalizeEntries runs movieRecord over a provider page, dropping entries
// that fail normalization while preserving the provider's ordering.
func normalizeEntries(entries []trakt.ListEntry, refYear int) []models.CatalogRecord {
	records := make([]models.CatalogRecord, 0, len(entries))
	for _, e := range entries {
		if rec, ok := movieRecord(e.Movie, refYear); ok {
			records = append(records, rec)
		}
	}
	return records
}

func normalizeMovies(movies []trakt.Movie, refYear int) []models.CatalogRecord {
	records := make([]models.CatalogRecord, 0, len(movies))
	for _, m := range movies {
		if rec, ok := movieRecord(m, refYear); ok {
			records = append(records, rec)
		}
	}
	return records
}

// nextPageToken returns the cursor for the following upstream page when the
// provider filled the current one, or "" when the list is exhausted.
func nextPageToken(fetched, limit, page int) string {
	if fetched < limit {
		return ""
	}
	return strconv.Itoa(page + 1)
}

// tokenPage decodes an upstream cursor back into a page number.
func tokenPage(token string) int {
	page, err := strconv.Atoi(token)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// directedBy joins the crew members holding a given set of jobs.
func directedBy(crew []trakt.CrewEntry, jobs ...string) string {
	var names []string
	for _, c := range crew {
		for _, want := range jobs {
			if strings.EqualFold(c.Job, want) && c.Person.Name != "" {
				names = append(names, c.Person.Name)
				break
			}
		}
	}
	return strings.Join(names, ", ")
}

func castMembers(cast []trakt.CastEntry) []models.CastMember {
	members := make([]models.CastMember, 0, len(cast))
	for _, c := range cast {
		if c.Person.Name == "" {
			continue
		}
		members = append(members, models.CastMember{Name: c.Person.Name, Role: c.Character})
	}
	return members
}

func hasTranslation(available []string, lang string) bool {
	for _, l := range available {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
