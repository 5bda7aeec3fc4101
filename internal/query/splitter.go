// Package query turns raw video titles into clean artist/track queries.
//
// CleanTitle strips platform noise (bracketed tags, hashtags, the trailing
// site suffix) from a raw title; ParseArtistTrack then splits the cleaned
// string into artist and track components using an ordered separator list.
package query

import (
	"strings"

	"github.com/Eric-A99/discogs-preview/internal/types"
)

// separators in priority order. The first separator in this list that occurs
// past position zero wins, even if a lower-priority separator appears earlier
// in the string. All require surrounding spaces, so hyphens inside words
// never split.
var separators = []string{" | ", " - ", " – ", " — ", ": "}

// ParseArtistTrack splits a combined "artist - track" string into its
// components. When no recognized separator is found past position zero the
// artist is left empty and the track holds the entire input unchanged.
func ParseArtistTrack(q string) types.ParsedQuery {
	for _, sep := range separators {
		idx := strings.Index(q, sep)
		if idx > 0 {
			return types.ParsedQuery{
				Artist: strings.TrimSpace(q[:idx]),
				Track:  strings.TrimSpace(q[idx+len(sep):]),
			}
		}
	}
	return types.ParsedQuery{Artist: "", Track: q}
}
