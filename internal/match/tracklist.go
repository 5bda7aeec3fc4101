// Package match decides whether a release tracklist actually contains a
// queried track, balancing short-name exactness against word-overlap for
// longer names.
package match

import (
	"github.com/Eric-A99/discogs-preview/internal/textutil"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Outcome is the tri-state result of a tracklist decision. "No track name
// supplied" is deliberately distinct from "track name supplied but not
// found" so an empty filter never silently passes as a match.
type Outcome int

const (
	// AcceptAll means no track name was supplied: any release is accepted.
	AcceptAll Outcome = iota
	// Matched means the tracklist contains the queried track.
	Matched
	// NotFound means a track name was supplied but no entry matched.
	NotFound
)

// shortNeedleMax is the longest normalized needle still matched by exact
// equality only. Word-overlap on 2-3 character needles produces false
// positives like "Ok" inside unrelated titles.
const shortNeedleMax = 3

// Contains reports whether the tracklist has an entry matching trackName.
// Empty tracklists and empty or single-character track names never match.
func Contains(tracklist []types.TracklistEntry, trackName string) bool {
	return Decide(tracklist, trackName) == Matched
}

// Decide classifies the tracklist against trackName. A blank trackName
// yields AcceptAll; callers choose what that means for their filter.
func Decide(tracklist []types.TracklistEntry, trackName string) Outcome {
	needle := textutil.Normalize(trackName)
	if needle == "" {
		return AcceptAll
	}
	if len(tracklist) == 0 {
		return NotFound
	}
	// single characters are categorically ambiguous
	if len(needle) < 2 {
		return NotFound
	}

	fuzzyNeedle := textutil.FuzzyNormalize(trackName)

	for _, entry := range tracklist {
		if entry.Type != "" && entry.Type != "track" {
			continue
		}
		title := textutil.Normalize(entry.Title)
		if title == "" {
			continue
		}

		if len(needle) <= shortNeedleMax {
			if title == needle {
				return Matched
			}
			continue
		}

		if wordSetContains(title, needle) {
			return Matched
		}
		if wordSetContains(textutil.FuzzyNormalize(entry.Title), fuzzyNeedle) {
			return Matched
		}
	}
	return NotFound
}

// wordSetContains reports whether every word of the shorter of the two
// normalized strings appears as a whole word in the longer. This lets a
// track match a remix or extended title that adds words, while "Fire" never
// matches "Firestarter": containment is per whole word, not per substring.
func wordSetContains(a, b string) bool {
	wordsA := textutil.Words(a)
	wordsB := textutil.Words(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	shorter, longer := wordsA, wordsB
	if len(wordsB) < len(wordsA) {
		shorter, longer = wordsB, wordsA
	}

	have := make(map[string]struct{}, len(longer))
	for _, w := range longer {
		have[w] = struct{}{}
	}
	for _, w := range shorter {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
