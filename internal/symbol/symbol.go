// Package symbol handles movie ticker symbols.
//
// Every tradable movie is listed under MOV-{tmdbID}, e.g. MOV-27205 for
// TMDB movie 27205. Bare numeric IDs are accepted wherever a symbol is.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Prefix is the exchange prefix shared by all movie symbols.
const Prefix = "MOV"

// symbolRegex matches: MOV-{id} (prefix case-insensitive) or a bare {id}.
var symbolRegex = regexp.MustCompile(`^(?:(?i:MOV)-)?([0-9]{1,18})$`)

var ErrInvalidSymbol = errors.New("symbol: invalid movie symbol")

// Parse returns the movie ID behind a symbol.
func Parse(s string) (int64, error) {
	matches := symbolRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q (expected %s-{id})", ErrInvalidSymbol, s, Prefix)
	}

	id, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return id, nil
}

// Format returns the symbol for a movie ID.
func Format(movieID int64) string {
	return fmt.Sprintf("%s-%d", Prefix, movieID)
}
