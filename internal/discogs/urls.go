package discogs

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Eric-A99/discogs-preview/internal/types"
)

// entityPathRule recognizes the two entity path shapes, each optionally
// preceded by an artist-name segment:
//
//	.../master/<id>
//	.../<artist>/master/<id>
//	.../release/<id>
//	.../<artist>/release/<id>
//
// Artist pages, label pages and unrelated domains never match.
var entityPathRule = regexp.MustCompile(`discogs\.com/(?:[^/?#]+/)?(master|release)/(\d+)`)

// ParseEntityURL parses a single URL into an entity reference. The boolean
// is false for URLs that do not point at a master or release.
func ParseEntityURL(raw string) (types.EntityRef, bool) {
	m := entityPathRule.FindStringSubmatch(raw)
	if m == nil {
		return types.EntityRef{}, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return types.EntityRef{}, false
	}
	return types.EntityRef{
		Kind: types.EntityKind(m[1]),
		ID:   id,
		URL:  raw,
	}, true
}

// Collector accumulates entity references across repeated URL discovery,
// deduplicating on (kind, id) so the same entity never appears twice.
type Collector struct {
	seen map[string]struct{}
	refs []types.EntityRef
}

// NewCollector creates an empty entity collector
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add parses the URL and appends its entity reference unless the same
// (kind, id) was already collected. Non-entity URLs are ignored without
// error; the return value reports whether a new reference was added.
func (c *Collector) Add(raw string) bool {
	ref, ok := ParseEntityURL(raw)
	if !ok {
		return false
	}
	key := ref.Key()
	if _, dup := c.seen[key]; dup {
		return false
	}
	c.seen[key] = struct{}{}
	c.refs = append(c.refs, ref)
	return true
}

// Refs returns the collected references in discovery order
func (c *Collector) Refs() []types.EntityRef {
	return c.refs
}

const marketplaceBase = "https://www.discogs.com"

// SellURL builds the listings URL for an entity. A release-specific page is
// preferred because its listing counts are exact; a master falls back to the
// master-aggregated page filtered to vinyl, and with neither identifier the
// generic marketplace search is built from the fallback query text.
func SellURL(entity types.EntityRef, fallbackQuery string) string {
	switch {
	case entity.Kind == types.KindRelease && entity.ID > 0:
		return fmt.Sprintf("%s/sell/release/%d", marketplaceBase, entity.ID)
	case entity.Kind == types.KindMaster && entity.ID > 0:
		return fmt.Sprintf("%s/sell/list?master_id=%d&format=Vinyl", marketplaceBase, entity.ID)
	default:
		return fmt.Sprintf("%s/sell/list?format=Vinyl&q=%s", marketplaceBase, url.QueryEscape(fallbackQuery))
	}
}

// FilterURL applies the location filter to a base listings URL and
// optionally rewrites it to a release-specific path. Condition filters are
// deliberately never expressed as URL parameters: the marketplace's own
// condition parameter is non-functional server-side, so grading is applied
// by the page parser instead.
func FilterURL(base string, usOnly bool, releaseID int) string {
	out := base
	if releaseID > 0 {
		out = fmt.Sprintf("%s/sell/release/%d", marketplaceBase, releaseID)
	}
	if usOnly {
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}
		out += sep + "ships_from=United+States"
	}
	return out
}

// disambiguationSuffix is the trailing " (2)"-style marker Discogs appends
// to artists sharing a name.
var disambiguationSuffix = regexp.MustCompile(`\s\(\d+\)$`)

// ExtractArtistNames joins the display names of the credited artists with
// ", ", stripping disambiguation-number suffixes. Empty input yields "".
func ExtractArtistNames(artists []types.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		name := disambiguationSuffix.ReplaceAllString(strings.TrimSpace(a.Name), "")
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// IsVinylFormat reports whether any of the entity's formats is vinyl
func IsVinylFormat(formats []types.Format) bool {
	for _, f := range formats {
		if strings.Contains(strings.ToLower(f.Name), "vinyl") {
			return true
		}
	}
	return false
}
