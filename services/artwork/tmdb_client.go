package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	tmdbImagesURL = "https://api.themoviedb.org/3/movie/%s/images?api_key=%s&include_image_language=en,%s,null"
	tmdbImageBase = "https://image.tmdb.org/t/p/w%d%s"

	// Upstream originals can be huge; widths are clamped before building URLs.
	maxPosterWidth   = 300
	maxBackdropWidth = 1280
	// Full-HD backdrops are preferred when present.
	preferredBackdropWidth = 1920
)

// tmdbImage is one poster or backdrop. Language is nil for untagged images.
type tmdbImage struct {
	FilePath string  `json:"file_path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Language *string `json:"iso_639_1"`
}

func (i tmdbImage) lang() string {
	if i.Language == nil {
		return ""
	}
	return *i.Language
}

type tmdbImages struct {
	Posters   []tmdbImage `json:"posters"`
	Backdrops []tmdbImage `json:"backdrops"`
}

type tmdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newTMDBClient(apiKey string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &tmdbClient{apiKey: apiKey, httpc: httpc}
}

func (c *tmdbClient) hasAPIKey() bool {
	return c.apiKey != ""
}

// movieImages fetches posters and backdrops for one imdb id, asking TMDB to
// include images tagged english, the requested language, and untagged.
func (c *tmdbClient) movieImages(ctx context.Context, imdbID, lang string) (*tmdbImages, error) {
	u := fmt.Sprintf(tmdbImagesURL, url.PathEscape(imdbID), url.QueryEscape(c.apiKey), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb images request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb images request: status %d", resp.StatusCode)
	}

	var images tmdbImages
	if err := json.NewDecoder(resp.Body).Decode(&images); err != nil {
		return nil, fmt.Errorf("decode tmdb images: %w", err)
	}
	return &images, nil
}

// imageURL builds the CDN URL for an image with its width clamped to max.
func imageURL(img tmdbImage, maxWidth int) string {
	width := img.Width
	if width > maxWidth {
		width = maxWidth
	}
	return fmt.Sprintf(tmdbImageBase, width, img.FilePath)
}
