package trakt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func testClient(fn roundTripFunc) *Client {
	return NewClient("client-id", "access-token", &http.Client{Transport: fn})
}

func TestSearchMoviesDecodesWrappedResults(t *testing.T) {
	var gotPath string
	c := testClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.RequestURI()
		if req.Header.Get("trakt-api-key") != "client-id" {
			t.Errorf("missing trakt-api-key header")
		}
		if req.Header.Get("Authorization") != "Bearer access-token" {
			t.Errorf("missing bearer token")
		}
		return jsonResponse(http.StatusOK, `[
			{"type":"movie","score":100,"movie":{"title":"Alien","year":1979,"ids":{"imdb":"tt0078748","tmdb":348}}},
			{"type":"movie","score":90,"movie":{"title":"Aliens","year":1986,"ids":{"imdb":"tt0090605"}}}
		]`), nil
	})

	movies, err := c.SearchMovies(context.Background(), "alien", 1)
	if err != nil {
		t.Fatalf("SearchMovies failed: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}
	if movies[0].Title != "Alien" || movies[0].IDs.IMDB != "tt0078748" {
		t.Errorf("unexpected first movie: %+v", movies[0])
	}
	if gotPath != "/search/movie?limit=20&page=1&extended=full&query=alien" {
		t.Errorf("unexpected request path %q", gotPath)
	}
}

func TestListEntryWrappedAndBare(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		// Mixed shapes in one response, as the activity API produces.
		return jsonResponse(http.StatusOK, `[
			{"collected_at":"2024-01-02T00:00:00Z","movie":{"title":"Wrapped","year":2001,"ids":{"imdb":"tt1"}}},
			{"title":"Bare","year":2002,"ids":{"imdb":"tt2"}}
		]`), nil
	})

	entries, err := c.Collection(context.Background())
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Movie.Title != "Wrapped" {
		t.Errorf("wrapped entry not resolved: %+v", entries[0])
	}
	if entries[1].Movie.Title != "Bare" {
		t.Errorf("bare entry not resolved: %+v", entries[1])
	}
}

func TestPermanentFailureYieldsEmptyResult(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error":"not found"}`), nil
	})

	entries, err := c.Watchlist(context.Background())
	if err != nil {
		t.Fatalf("expected 404 to be absorbed, got %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}

	movie, err := c.MovieSummary(context.Background(), "tt0000000")
	if err != nil {
		t.Fatalf("expected summary 404 to be absorbed, got %v", err)
	}
	if movie != nil {
		t.Errorf("expected nil movie, got %+v", movie)
	}
}

func TestMalformedBodyTreatedAsNoData(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html>not json</html>`), nil
	})

	movie, err := c.MovieSummary(context.Background(), "tt1")
	if err != nil {
		t.Fatalf("expected malformed body to be absorbed, got %v", err)
	}
	if movie != nil {
		t.Errorf("expected nil movie, got %+v", movie)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, ``), nil
	})

	_, err := c.Trending(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error for 502")
	}
	if !IsTransient(err) {
		t.Errorf("expected transient provider error, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Status != http.StatusBadGateway {
		t.Errorf("expected status 502 on provider error, got %+v", pe)
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := c.History(context.Background(), 1)
	if !IsTransient(err) {
		t.Errorf("expected transient error for network failure, got %v", err)
	}
}

func TestMovieTranslationFirstEntry(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/movies/tt0078748/translations/fr" {
			t.Errorf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `[
			{"title":"Le Huitième Passager","overview":"résumé","tagline":"","language":"fr"},
			{"title":"Autre","overview":"","tagline":"","language":"fr"}
		]`), nil
	})

	tr, err := c.MovieTranslation(context.Background(), "tt0078748", "fr")
	if err != nil {
		t.Fatalf("MovieTranslation failed: %v", err)
	}
	if tr == nil || tr.Title != "Le Huitième Passager" {
		t.Errorf("expected first translation, got %+v", tr)
	}
}

func TestLikedListsUnwrapped(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[
			{"liked_at":"2024-05-01T00:00:00Z","list":{"name":"Best Heists","ids":{"trakt":7,"slug":"best-heists"},"user":{"username":"coco","ids":{"slug":"coco"}}}}
		]`), nil
	})

	lists, err := c.LikedLists(context.Background())
	if err != nil {
		t.Fatalf("LikedLists failed: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Best Heists" || lists[0].User.IDs.Slug != "coco" {
		t.Errorf("unexpected lists: %+v", lists)
	}
}

func TestLastActivity(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"all":"2024-06-01T12:00:00Z","movies":{"watched_at":"2024-05-30T00:00:00Z"}}`), nil
	})

	ts, err := c.LastActivity(context.Background())
	if err != nil {
		t.Fatalf("LastActivity failed: %v", err)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}
}
