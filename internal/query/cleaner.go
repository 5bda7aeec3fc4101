package query

import (
	"regexp"
	"strings"
)

// noiseKeywords matches tag content that marks a bracketed span as platform
// noise rather than part of the title. Content matching is deliberate: an
// unrelated parenthetical like "(feat. Someone)" or "(DJ Mix)" is preserved.
var noiseKeywords = regexp.MustCompile(`(?i)\b(official|music|lyric|lyrics|audio|video|visuali[sz]er|animated|remaster|remastered|hd|hq|4k|\d{3,4}p|full album)\b`)

var (
	parenSpan   = regexp.MustCompile(`\(([^)]*)\)`)
	bracketSpan = regexp.MustCompile(`\[([^\]]*)\]`)
	braceSpan   = regexp.MustCompile(`\{([^}]*)\}`)
	hashtag     = regexp.MustCompile(`#\S+`)
	spaces      = regexp.MustCompile(`\s+`)
)

// noisePhrases are the same keyword phrases when they appear unbracketed.
// Only full phrases and quality tokens are removed standalone; a bare
// "video" in a real title is left alone.
var noisePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bofficial (music )?video\b`),
	regexp.MustCompile(`(?i)\bofficial (audio|visuali[sz]er|lyric video|lyrics video)\b`),
	regexp.MustCompile(`(?i)\blyric video\b`),
	regexp.MustCompile(`(?i)\bfull album\b`),
	regexp.MustCompile(`(?i)\bremaster(ed)?\b`),
	regexp.MustCompile(`(?i)\b(hd|hq|4k|\d{3,4}p)\b`),
}

const platformSuffix = " - YouTube"

// CleanTitle strips video-platform noise from a raw video title, producing a
// string suitable as a marketplace search query. Empty input yields empty
// output.
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if strings.HasSuffix(s, platformSuffix) {
		s = s[:len(s)-len(platformSuffix)]
	}

	dropNoiseSpan := func(match string) string {
		inner := match[1 : len(match)-1]
		if noiseKeywords.MatchString(inner) {
			return ""
		}
		return match
	}
	s = parenSpan.ReplaceAllStringFunc(s, dropNoiseSpan)
	s = bracketSpan.ReplaceAllStringFunc(s, dropNoiseSpan)
	s = braceSpan.ReplaceAllStringFunc(s, dropNoiseSpan)

	s = hashtag.ReplaceAllString(s, "")

	for _, phrase := range noisePhrases {
		s = phrase.ReplaceAllString(s, "")
	}

	s = spaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	// phrase removal can strand a trailing separator, e.g. "Artist - Track -"
	s = strings.TrimRight(s, "-–—|: ")
	return s
}
