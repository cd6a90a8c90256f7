package imdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func htmlResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

const listPageHTML = `
<html><body>
<div class="lister-item">
  <div class="lister-item-image">
    <img alt="Heat" data-tconst="tt0113277" loadlate="https://m.media-amazon.com/heat.jpg">
  </div>
  <h3 class="lister-item-header"><a href="/title/tt0113277/">Heat</a>
    <span class="lister-item-year">(1995)</span></h3>
  <div class="ratings-imdb-rating"><strong>8.3</strong></div>
  <p class="">A group of professional bank robbers start to feel the heat.</p>
</div>
<div class="lister-item">
  <div class="lister-item-image">
    <img alt="Ronin" data-tconst="tt0122690" loadlate="https://m.media-amazon.com/ronin.jpg">
  </div>
  <h3 class="lister-item-header"><a href="/title/tt0122690/">Ronin</a>
    <span class="lister-item-year">(1998)</span></h3>
  <p class="">Freelance operatives hunt a mysterious briefcase.</p>
</div>
</body></html>`

const profileHTML = `
<html><body>
<div class="user-list" id="ls001">
  <a class="list-name" href="/list/ls001">Noir Favorites</a>
</div>
<div class="user-list" id="ls002">
  <a class="list-name" href="/list/ls002">To Watch</a>
</div>
</body></html>`

func TestFetchListPageParsesRecords(t *testing.T) {
	s := NewScraper("1234567", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(listPageHTML), nil
	})})

	records, err := s.FetchListPage(context.Background(), "https://www.imdb.com/search/title?whatever")
	if err != nil {
		t.Fatalf("FetchListPage failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	heat := records[0]
	if heat.Title != "Heat" || heat.Year != 1995 || heat.IMDB != "tt0113277" {
		t.Errorf("unexpected first record: %+v", heat)
	}
	if heat.Rating == nil || *heat.Rating != 8.3 {
		t.Errorf("expected rating 8.3, got %v", heat.Rating)
	}
	if heat.Poster != "https://m.media-amazon.com/heat.jpg" {
		t.Errorf("unexpected poster %q", heat.Poster)
	}
	if heat.TVDB != "0" {
		t.Errorf("expected tvdb placeholder, got %q", heat.TVDB)
	}

	// Unrated entries keep a nil rating instead of a fake zero.
	if records[1].Rating != nil {
		t.Errorf("expected nil rating for unrated record, got %v", *records[1].Rating)
	}
}

func TestUserListsParsesProfile(t *testing.T) {
	var requested string
	s := NewScraper("ur1234567", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		requested = req.URL.String()
		return htmlResponse(profileHTML), nil
	})})

	lists, err := s.UserLists(context.Background())
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	if !strings.Contains(requested, "/user/ur1234567/") {
		t.Errorf("expected profile URL with normalized user id, got %q", requested)
	}
	if len(lists) != 2 {
		t.Fatalf("expected 2 lists, got %d", len(lists))
	}
	if lists[0].Name != "Noir Favorites" || lists[0].ID != "ls001" {
		t.Errorf("unexpected first list: %+v", lists[0])
	}
}

func TestUserListsWithoutUser(t *testing.T) {
	s := NewScraper("", nil)
	lists, err := s.UserLists(context.Background())
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	if lists != nil {
		t.Errorf("expected nil lists without a configured user, got %v", lists)
	}
}

func TestBuiltinListURL(t *testing.T) {
	u := BuiltinListURL("popular")
	for _, want := range []string{"search/title", "count=90", "num_votes=1000,", "sort=moviemeter,asc"} {
		if !strings.Contains(u, want) {
			t.Errorf("expected %q in %q", want, u)
		}
	}
	if BuiltinListURL("nope") != "" {
		t.Error("expected empty URL for unknown list type")
	}
}

func TestSearchURLMergesDefaults(t *testing.T) {
	u := SearchURL(map[string]string{"genres": "film_noir", "start": "91"})
	for _, want := range []string{"count=90", "genres=film_noir", "start=91"} {
		if !strings.Contains(u, want) {
			t.Errorf("expected %q in %q", want, u)
		}
	}
}
