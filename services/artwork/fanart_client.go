package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const fanartAPIBaseURL = "https://webservice.fanart.tv/v3/movies/%s"

// fanartVariant is one locale-tagged image on fanart.tv. The upstream lists
// variants oldest first; "00" or an empty lang tag means "no locale".
type fanartVariant struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Lang  string `json:"lang"`
	Likes string `json:"likes"`
}

// fanartMovieArt is the per-movie response, one slice per art kind.
type fanartMovieArt struct {
	MoviePoster      []fanartVariant `json:"movieposter"`
	MovieBackground  []fanartVariant `json:"moviebackground"`
	MovieThumb       []fanartVariant `json:"moviethumb"`
	MovieBanner      []fanartVariant `json:"moviebanner"`
	HDMovieLogo      []fanartVariant `json:"hdmovielogo"`
	ClearLogo        []fanartVariant `json:"clearlogo"`
	HDMovieClearArt  []fanartVariant `json:"hdmovieclearart"`
	ClearArt         []fanartVariant `json:"clearart"`
}

type fanartClient struct {
	apiKey    string
	clientKey string
	httpc     *http.Client
}

func newFanartClient(apiKey, clientKey string, httpc *http.Client) *fanartClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &fanartClient{apiKey: apiKey, clientKey: clientKey, httpc: httpc}
}

// hasClientKey reports whether the user supplied a personal fanart.tv key.
// Without one, clearlogo/clearart results are withheld from the output.
func (c *fanartClient) hasClientKey() bool {
	return c.clientKey != ""
}

// movieArt fetches all art kinds for one imdb id. Any failure, including an
// undecodable body, is returned as an error; the resolver degrades from there.
func (c *fanartClient) movieArt(ctx context.Context, imdbID string) (*fanartMovieArt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf(fanartAPIBaseURL, url.PathEscape(imdbID)), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	if c.clientKey != "" {
		req.Header.Set("client-key", c.clientKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fanart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fanart request: status %d", resp.StatusCode)
	}

	var art fanartMovieArt
	if err := json.NewDecoder(resp.Body).Decode(&art); err != nil {
		return nil, fmt.Errorf("decode fanart response: %w", err)
	}
	return &art, nil
}
