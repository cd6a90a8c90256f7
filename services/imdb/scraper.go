package imdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cinedex/models"
)

const (
	imdbBaseURL     = "https://www.imdb.com"
	userListURL     = imdbBaseURL + "/list/%s"
	userProfileURL  = imdbBaseURL + "/user/ur%s/"
	titleSearchURL  = imdbBaseURL + "/search/title"

	// ResultsCount is how many records one list page carries.
	ResultsCount = 90
)

var yearRe = regexp.MustCompile(`(\d+)`)

// Scraper turns IMDB list and search pages into normalized catalog records.
// It is the film-database collaborator of the aggregation engine: records come
// back pre-normalized, with only default fill left to the list adapter.
type Scraper struct {
	httpc  *http.Client
	userID string // numeric part of the ur-prefixed account id, may be empty
}

// NewScraper creates an IMDB scraper. userID may be empty when the user has
// not linked an IMDB account; user-list calls then return nothing.
func NewScraper(userID string, httpc *http.Client) *Scraper {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{httpc: httpc, userID: strings.TrimPrefix(userID, "ur")}
}

// HasUser reports whether an IMDB account is configured.
func (s *Scraper) HasUser() bool {
	return s.userID != ""
}

func (s *Scraper) fetchDocument(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imdb request: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse imdb page: %w", err)
	}
	return doc, nil
}

// FetchListPage retrieves and parses one IMDB list or search result page.
func (s *Scraper) FetchListPage(ctx context.Context, pageURL string) ([]models.CatalogRecord, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var records []models.CatalogRecord
	doc.Find("div.lister-item").Each(func(_ int, item *goquery.Selection) {
		rec := models.CatalogRecord{TVDB: "0", TMDB: "0"}

		rec.Title = strings.TrimSpace(item.Find("h3.lister-item-header a").First().Text())
		rec.OriginalTitle = rec.Title

		if m := yearRe.FindString(item.Find("span.lister-item-year").First().Text()); m != "" {
			rec.Year, _ = strconv.Atoi(m)
		}

		if v, err := strconv.ParseFloat(
			strings.TrimSpace(item.Find("div.ratings-imdb-rating strong").First().Text()), 64); err == nil {
			rec.Rating = &v
		}

		rec.Plot = strings.TrimSpace(item.Find(`p[class=""]`).First().Text())

		img := item.Find("div.lister-item-image img").First()
		rec.IMDB, _ = img.Attr("data-tconst")
		rec.Poster, _ = img.Attr("loadlate")

		records = append(records, rec)
	})
	return records, nil
}

// UserLists returns the lists on the configured user's profile page.
func (s *Scraper) UserLists(ctx context.Context) ([]models.ListRef, error) {
	if !s.HasUser() {
		return nil, nil
	}
	doc, err := s.fetchDocument(ctx, fmt.Sprintf(userProfileURL, s.userID))
	if err != nil {
		return nil, err
	}

	var lists []models.ListRef
	doc.Find("div.user-list").Each(func(_ int, item *goquery.Selection) {
		id, ok := item.Attr("id")
		if !ok {
			return
		}
		lists = append(lists, models.ListRef{
			Name:   strings.TrimSpace(item.Find("a.list-name").First().Text()),
			Source: models.SourceIMDBUserList,
			ID:     id,
		})
	})
	return lists, nil
}

// UserListURL builds the page URL for one of the user's own lists.
func UserListURL(listID string) string {
	return fmt.Sprintf(userListURL, url.PathEscape(listID)) +
		"?" + encodeParams(map[string]string{
		"sort":       "alpha,asc",
		"mode":       "detail",
		"title_type": "movie",
	})
}

// BuiltinListURL builds the search URL behind one of the named builtin lists.
// Unknown list types return an empty string.
func BuiltinListURL(listType string) string {
	params := map[string]string{
		"title_type": "movie",
		"count":      strconv.Itoa(ResultsCount),
		"start":      "1",
	}
	switch listType {
	case "popular":
		params["num_votes"] = "1000,"
		params["sort"] = "moviemeter,asc"
	case "views":
		params["num_votes"] = "1000,"
		params["sort"] = "num_votes,desc"
	case "featured":
		params["release_date"] = "date[365]"
		params["num_votes"] = "1000,"
		params["sort"] = "moviemeter,asc"
	case "boxoffice":
		params["num_votes"] = "1000,"
		params["sort"] = "boxoffice_gross_us,desc"
	case "oscars":
		params["groups"] = "oscar_best_picture_winners"
	case "theater":
		params["title_type"] = "feature"
		params["release_date"] = "date[365],date[0]"
		params["sort"] = "release_date_us,desc"
	default:
		return ""
	}
	return titleSearchURL + "?" + encodeParams(params)
}

// SearchURL builds a custom title search URL from raw IMDB parameters, such as
// the genre and year queries behind the navigation entries.
func SearchURL(params map[string]string) string {
	merged := map[string]string{
		"count": strconv.Itoa(ResultsCount),
		"start": "1",
	}
	for k, v := range params {
		merged[k] = v
	}
	return titleSearchURL + "?" + encodeParams(merged)
}

// encodeParams joins parameters deterministically. IMDB accepts literal commas
// in values, so they are left unescaped the way its own links have them.
func encodeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}
