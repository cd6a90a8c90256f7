package artwork

import (
	"context"
	"log/slog"
	"net/http"
)

// Bundle is the resolved artwork for one title. Empty fields mean "no art of
// that kind could be resolved".
type Bundle struct {
	Poster2   string // fanart.tv poster
	Poster3   string // TMDB poster
	Banner    string
	Fanart    string // fanart.tv background
	Fanart2   string // TMDB backdrop
	ClearLogo string
	ClearArt  string

	// Missing is set when the fanart.tv lookup failed outright; callers use it
	// to skip persisting an incomplete cache entry.
	Missing bool
}

// Resolver queries the two art providers and applies the locale-ranked
// fallback rules per art kind.
type Resolver struct {
	fanart *fanartClient
	tmdb   *tmdbClient
	log    *slog.Logger
}

// NewResolver creates an art resolver. fanartClientKey is the user's personal
// fanart.tv key and may be empty; tmdbAPIKey may be empty to disable the TMDB
// image source.
func NewResolver(fanartAPIKey, fanartClientKey, tmdbAPIKey string, httpc *http.Client) *Resolver {
	return &Resolver{
		fanart: newFanartClient(fanartAPIKey, fanartClientKey, httpc),
		tmdb:   newTMDBClient(tmdbAPIKey, httpc),
		log:    slog.Default().With("component", "artwork"),
	}
}

// Resolve returns the best artwork for the given imdb id and language. Both
// provider calls are single-shot; any failure degrades the affected fields
// only and never returns an error.
func (r *Resolver) Resolve(ctx context.Context, imdbID, locale string) Bundle {
	var bundle Bundle

	art, err := r.fanart.movieArt(ctx, imdbID)
	if err != nil {
		r.log.Debug("fanart lookup failed", "imdb", imdbID, "error", err)
		bundle.Missing = true
	} else {
		bundle.Poster2 = pickCommunity(art.MoviePoster, locale)
		bundle.Banner = pickCommunity(art.MovieBanner, locale)

		background := art.MovieBackground
		if len(background) == 0 {
			background = art.MovieThumb
		}
		bundle.Fanart = pickCommunity(background, locale)

		logo := art.HDMovieLogo
		if len(logo) == 0 {
			logo = art.ClearLogo
		}
		bundle.ClearLogo = pickCommunity(logo, locale)

		clearart := art.HDMovieClearArt
		if len(clearart) == 0 {
			clearart = art.ClearArt
		}
		bundle.ClearArt = pickCommunity(clearart, locale)
	}

	// Clear art kinds require a personal fanart.tv key; without one they are
	// withheld no matter what the lookup returned.
	if !r.fanart.hasClientKey() {
		bundle.ClearLogo = ""
		bundle.ClearArt = ""
	}

	if r.tmdb.hasAPIKey() {
		images, err := r.tmdb.movieImages(ctx, imdbID, locale)
		if err != nil {
			r.log.Debug("tmdb images lookup failed", "imdb", imdbID, "error", err)
		} else {
			if poster, ok := pickTMDB(images.Posters, locale); ok {
				bundle.Poster3 = imageURL(poster, maxPosterWidth)
			}
			if backdrop, ok := pickTMDB(preferWidth(images.Backdrops, preferredBackdropWidth), locale); ok {
				bundle.Fanart2 = imageURL(backdrop, maxBackdropWidth)
			}
		}
	}

	return bundle
}

// pickCommunity selects a fanart.tv variant: requested locale first, then
// english, then untagged. Within each group the upstream order is reversed,
// because fanart.tv appends the newest variant last and newest wins.
func pickCommunity(variants []fanartVariant, locale string) string {
	candidates := make([]fanartVariant, 0, len(variants))
	candidates = append(candidates, reversedByLang(variants, func(lang string) bool { return lang == locale })...)
	if locale != "en" {
		candidates = append(candidates, reversedByLang(variants, func(lang string) bool { return lang == "en" })...)
	}
	candidates = append(candidates, reversedByLang(variants, func(lang string) bool { return lang == "00" || lang == "" })...)

	if len(candidates) == 0 {
		return ""
	}
	return candidates[0].URL
}

func reversedByLang(variants []fanartVariant, match func(string) bool) []fanartVariant {
	var out []fanartVariant
	for i := len(variants) - 1; i >= 0; i-- {
		if match(variants[i].Lang) {
			out = append(out, variants[i])
		}
	}
	return out
}

// pickTMDB selects a TMDB image: requested locale, then english, then anything
// else, keeping the upstream order within each group (TMDB already ranks by
// vote).
func pickTMDB(images []tmdbImage, locale string) (tmdbImage, bool) {
	groups := [3][]tmdbImage{}
	for _, img := range images {
		switch img.lang() {
		case locale:
			groups[0] = append(groups[0], img)
		case "en":
			groups[1] = append(groups[1], img)
		default:
			groups[2] = append(groups[2], img)
		}
	}
	for _, group := range groups {
		if len(group) > 0 {
			return group[0], true
		}
	}
	return tmdbImage{}, false
}

// preferWidth stably moves images of exactly want pixels wide to the front,
// followed by narrower ones, dropping anything wider.
func preferWidth(images []tmdbImage, want int) []tmdbImage {
	var exact, narrower []tmdbImage
	for _, img := range images {
		switch {
		case img.Width == want:
			exact = append(exact, img)
		case img.Width < want:
			narrower = append(narrower, img)
		}
	}
	return append(exact, narrower...)
}
