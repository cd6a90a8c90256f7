package utils

import (
	"html"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var votesPrinter = message.NewPrinter(language.English)

var genreCaser = cases.Title(language.English)

// TitleKey returns the sort key for a title: lowercased with a leading
// english article removed, so "The Thing" sorts under T-for-Thing.
func TitleKey(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(t, article) {
			return t[len(article):]
		}
	}
	return t
}

// FormatVotes renders a vote count with grouping separators ("1,234,567").
func FormatVotes(votes int) string {
	return votesPrinter.Sprintf("%d", votes)
}

// JoinGenres title-cases genre slugs and joins them for display:
// ["science-fiction", "drama"] becomes "Science-Fiction / Drama".
func JoinGenres(genres []string) string {
	if len(genres) == 0 {
		return ""
	}
	display := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		display = append(display, genreCaser.String(g))
	}
	return strings.Join(display, " / ")
}

// CleanText unescapes HTML entities the upstream providers leave in titles
// and plots.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
