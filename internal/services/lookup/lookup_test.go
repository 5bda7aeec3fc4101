package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/listing"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

type stubDiscogs struct {
	getReleaseFunc     func(ctx context.Context, id int) (*types.EntityDetail, error)
	getMasterFunc      func(ctx context.Context, id int) (*types.EntityDetail, error)
	suggestionsFunc    func(ctx context.Context, releaseID int) (map[string]float64, error)
	fetchSellPageFunc  func(ctx context.Context, url string) (string, error)
	hasConfiguredToken bool
}

func (s *stubDiscogs) GetRelease(ctx context.Context, id int) (*types.EntityDetail, error) {
	if s.getReleaseFunc != nil {
		return s.getReleaseFunc(ctx, id)
	}
	return nil, nil
}

func (s *stubDiscogs) GetMaster(ctx context.Context, id int) (*types.EntityDetail, error) {
	if s.getMasterFunc != nil {
		return s.getMasterFunc(ctx, id)
	}
	return nil, nil
}

func (s *stubDiscogs) GetPriceSuggestions(ctx context.Context, releaseID int) (map[string]float64, error) {
	if s.suggestionsFunc != nil {
		return s.suggestionsFunc(ctx, releaseID)
	}
	return nil, errors.New("no suggestions")
}

func (s *stubDiscogs) FetchSellPage(ctx context.Context, url string) (string, error) {
	if s.fetchSellPageFunc != nil {
		return s.fetchSellPageFunc(ctx, url)
	}
	return "", errors.New("no sell page")
}

func (s *stubDiscogs) HasToken() bool { return s.hasConfiguredToken }

type stubDiscovery struct {
	findFunc func(ctx context.Context, artist, track string) ([]types.EntityRef, error)
}

func (s *stubDiscovery) FindCandidates(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
	return s.findFunc(ctx, artist, track)
}

var testRates = map[string]float64{"USD": 1.0, "EUR": 0.85}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestService(d *stubDiscogs, disc *stubDiscovery) *Service {
	return NewService(d, disc, listing.NewParser(testRates, testLogger()), DefaultConfig(), testLogger())
}

// sellBlock renders a single valid listing fragment
func sellBlock(grade, country, price string) string {
	return fmt.Sprintf(
		`<div>Media Condition: %s <b>Ships From:</b><span>%s</span> <span>%s</span></div>`,
		grade, country, price)
}

func vinylDetail(id int, title string, tracks ...string) *types.EntityDetail {
	detail := &types.EntityDetail{
		ID:      id,
		Title:   title,
		Year:    1983,
		Artists: []types.Artist{{Name: "Blueless", ID: 7}},
		Formats: []types.Format{{Name: "Vinyl", Quantity: "1"}},
	}
	for _, tr := range tracks {
		detail.Tracklist = append(detail.Tracklist, types.TracklistEntry{Title: tr, Type: "track"})
	}
	return detail
}

func releaseRefs(ids ...int) []types.EntityRef {
	refs := make([]types.EntityRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, types.EntityRef{Kind: types.KindRelease, ID: id})
	}
	return refs
}

func TestLookupEndToEnd(t *testing.T) {
	sellPage := sellBlock("Near Mint (NM or M-)", "United States", "$25.00") +
		sellBlock("Very Good (VG)", "Germany", "$10.00")

	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Ok", "Ok", "Another Song"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return sellPage, nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		if artist != "Blueless" || track != "Ok" {
			t.Errorf("discovery query = %q/%q, want cleaned split", artist, track)
		}
		return releaseRefs(1234), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{
		Title: "Blueless - Ok (Official Video) - YouTube",
	})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if result.Query.Artist != "Blueless" || result.Query.Track != "Ok" {
		t.Errorf("query = %+v", result.Query)
	}
	if result.Stats.NumForSale != 2 {
		t.Errorf("NumForSale = %d, want 2", result.Stats.NumForSale)
	}
	if result.Stats.LowestPrice == nil || *result.Stats.LowestPrice != 10.00 {
		t.Errorf("LowestPrice = %v, want 10.00", result.Stats.LowestPrice)
	}
	if result.Stats.MedianPrice == nil || *result.Stats.MedianPrice != 17.5 {
		t.Errorf("MedianPrice = %v, want 17.5", result.Stats.MedianPrice)
	}
	if len(result.Matches) != 1 || result.Matches[0].Artist != "Blueless" {
		t.Errorf("matches = %+v", result.Matches)
	}
}

func TestLookupSkipsNonMatchingTracklists(t *testing.T) {
	details := map[int]*types.EntityDetail{
		1: vinylDetail(1, "Unrelated", "Longer Track Name", "Okay Fine"),
		2: vinylDetail(2, "Ok", "Ok"),
	}
	var scraped []int
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return details[id], nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			for id := range details {
				if strings.Contains(url, fmt.Sprintf("/sell/release/%d", id)) {
					scraped = append(scraped, id)
				}
			}
			return sellBlock("Mint (M)", "United States", "$5.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1, 2), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{
		Artist: "Blueless", Track: "Ok",
	})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(scraped) != 1 || scraped[0] != 2 {
		t.Errorf("scraped entities = %v, want only the exact short-title match", scraped)
	}
	if len(result.Matches) != 1 || result.Matches[0].Entity.ID != 2 {
		t.Errorf("matches = %+v, want release 2 only", result.Matches)
	}
}

func TestLookupSkipsAbsentAndNonVinyl(t *testing.T) {
	cd := vinylDetail(3, "Ok", "Ok")
	cd.Formats = []types.Format{{Name: "CD"}}

	details := map[int]*types.EntityDetail{
		2: nil, // 404/403: skip
		3: cd,
		4: vinylDetail(4, "Ok", "Ok"),
	}
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return details[id], nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return sellBlock("Mint (M)", "United States", "$5.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(2, 3, 4), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{Track: "Ok"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Entity.ID != 4 {
		t.Errorf("matches = %+v, want only the vinyl release", result.Matches)
	}
}

func TestLookupUnfilteredFallback(t *testing.T) {
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Different Album", "Some Other Song"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return sellBlock("Mint (M)", "United States", "$5.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(10, 11), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{
		Artist: "Someone", Track: "Missing Song",
	})
	if err != nil {
		t.Fatalf("Lookup() error = %v, want fallback to best candidate", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Entity.ID != 10 {
		t.Errorf("matches = %+v, want only the best-ranked candidate", result.Matches)
	}
}

func TestLookupNoResults(t *testing.T) {
	d := &stubDiscogs{}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return nil, nil
	}}

	_, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{Track: "anything"})
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Lookup() error = %v, want ErrNoResults", err)
	}
}

func TestLookupReleaseSelectionSkipsDiscovery(t *testing.T) {
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			if id != 42 {
				t.Errorf("fetched release %d, want 42", id)
			}
			return vinylDetail(id, "Ok", "Ok"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return sellBlock("Mint (M)", "United States", "$5.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		t.Error("discovery should not run when a release is selected")
		return nil, nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{
		Track: "Ok", ReleaseID: 42,
	})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Entity.ID != 42 {
		t.Errorf("matches = %+v", result.Matches)
	}
}

func TestLookupScrapeFailureDegradesToZero(t *testing.T) {
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Ok", "Ok"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return "", errors.New("network down")
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{Track: "Ok"})
	if err != nil {
		t.Fatalf("Lookup() error = %v, want zero-result degradation", err)
	}
	if result.Stats.NumForSale != 0 || result.Stats.LowestPrice != nil {
		t.Errorf("stats = %+v, want zero counts and nil prices", result.Stats)
	}
	if len(result.Matches) != 0 {
		t.Errorf("matches = %+v, want zero-listing entity dropped", result.Matches)
	}
}

func TestLookupCachesByFilterCombination(t *testing.T) {
	fetches := 0
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Ok", "Ok"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			fetches++
			return sellBlock("Mint (M)", "United States", "$5.00") +
				sellBlock("Good (G)", "Germany", "$2.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1), nil
	}}
	svc := newTestService(d, disc)

	req := types.LookupRequest{Artist: "Blueless", Track: "Ok"}
	if _, err := svc.Lookup(context.Background(), req); err != nil {
		t.Fatalf("first Lookup() error = %v", err)
	}
	after := fetches

	if _, err := svc.Lookup(context.Background(), req); err != nil {
		t.Fatalf("second Lookup() error = %v", err)
	}
	if fetches != after {
		t.Errorf("repeat lookup fetched %d more pages, want cache hit", fetches-after)
	}

	// a condition filter must re-scrape with filter-aware parsing
	filtered, err := svc.Lookup(context.Background(), types.LookupRequest{Artist: "Blueless", Track: "Ok", VGPlus: true})
	if err != nil {
		t.Fatalf("filtered Lookup() error = %v", err)
	}
	if fetches == after {
		t.Error("condition-filtered lookup must not reuse the unfiltered cache entry")
	}
	if filtered.Stats.NumForSale != 1 {
		t.Errorf("filtered NumForSale = %d, want 1 (sub-VG+ listing excluded)", filtered.Stats.NumForSale)
	}
	if filtered.Stats.LowestPrice == nil || *filtered.Stats.LowestPrice != 5.00 {
		t.Errorf("filtered LowestPrice = %v, want 5.00", filtered.Stats.LowestPrice)
	}
}

func TestLookupLocationFilterReusesWhenNothingExcluded(t *testing.T) {
	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Ok", "Ok"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			// every listing ships from the US, so the location filter
			// excludes nothing
			return sellBlock("Mint (M)", "United States", "$5.00") +
				sellBlock("Near Mint (NM or M-)", "United States", "$8.00"), nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1), nil
	}}
	svc := newTestService(d, disc)

	unfiltered, err := svc.Lookup(context.Background(), types.LookupRequest{Artist: "Blueless", Track: "Ok"})
	if err != nil {
		t.Fatalf("unfiltered Lookup() error = %v", err)
	}

	located, err := svc.Lookup(context.Background(), types.LookupRequest{Artist: "Blueless", Track: "Ok", USOnly: true})
	if err != nil {
		t.Fatalf("us-only Lookup() error = %v", err)
	}
	if located.Stats.NumForSale != unfiltered.Stats.NumForSale {
		t.Errorf("NumForSale = %d, want %d", located.Stats.NumForSale, unfiltered.Stats.NumForSale)
	}
	if *located.Stats.MedianPrice != *unfiltered.Stats.MedianPrice {
		t.Errorf("MedianPrice = %v, want unfiltered %v", *located.Stats.MedianPrice, *unfiltered.Stats.MedianPrice)
	}
}

func TestLookupAttachesPriceSuggestions(t *testing.T) {
	d := &stubDiscogs{
		hasConfiguredToken: true,
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Ok", "Ok"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return sellBlock("Mint (M)", "United States", "$5.00"), nil
		},
		suggestionsFunc: func(ctx context.Context, releaseID int) (map[string]float64, error) {
			return map[string]float64{
				"Very Good Plus (VG+)": 21.25,
				"Near Mint (NM or M-)": 42.50,
			}, nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1234), nil
	}}

	result, err := newTestService(d, disc).Lookup(context.Background(), types.LookupRequest{Track: "Ok"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if result.Stats.VGPlusPrice == nil || *result.Stats.VGPlusPrice != 21.25 {
		t.Errorf("VGPlusPrice = %v, want 21.25", result.Stats.VGPlusPrice)
	}
	if result.Stats.NearMintPrice == nil || *result.Stats.NearMintPrice != 42.50 {
		t.Errorf("NearMintPrice = %v, want 42.50", result.Stats.NearMintPrice)
	}
}

func TestLookupSevenListingScenario(t *testing.T) {
	page := strings.Join([]string{
		sellBlock("Mint (M)", "United States", "$12.00"),
		sellBlock("Near Mint (NM or M-)", "United States", "$7.50"),
		sellBlock("Very Good Plus (VG+)", "Germany", "$3.00"),
		sellBlock("Very Good (VG)", "United States", "$1.99"), // sub-VG+
		sellBlock("Mint (M)", "Japan", "$20.00"),
		sellBlock("Near Mint (NM or M-)", "United Kingdom", "$9.99"),
		sellBlock("Very Good Plus (VG+)", "United States", "$4.25"),
		`<aside><h3>Media Condition:</h3><p>More than $40</p></aside>`,
	}, "\n")

	d := &stubDiscogs{
		getReleaseFunc: func(ctx context.Context, id int) (*types.EntityDetail, error) {
			return vinylDetail(id, "Blue Monday", "Blue Monday"), nil
		},
		fetchSellPageFunc: func(ctx context.Context, url string) (string, error) {
			return page, nil
		},
	}
	disc := &stubDiscovery{findFunc: func(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
		return releaseRefs(1), nil
	}}
	svc := newTestService(d, disc)

	result, err := svc.Lookup(context.Background(), types.LookupRequest{Artist: "New Order", Track: "Blue Monday"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if result.Stats.NumForSale != 7 {
		t.Errorf("NumForSale = %d, want 7 (sidebar phantom excluded)", result.Stats.NumForSale)
	}
	if result.Stats.LowestPrice == nil || *result.Stats.LowestPrice != 1.99 {
		t.Errorf("LowestPrice = %v, want 1.99", result.Stats.LowestPrice)
	}

	filtered, err := svc.Lookup(context.Background(), types.LookupRequest{Artist: "New Order", Track: "Blue Monday", VGPlus: true})
	if err != nil {
		t.Fatalf("filtered Lookup() error = %v", err)
	}
	if filtered.Stats.NumForSale != 6 {
		t.Errorf("filtered NumForSale = %d, want 6", filtered.Stats.NumForSale)
	}
	if filtered.Stats.LowestPrice == nil || *filtered.Stats.LowestPrice != 3.00 {
		t.Errorf("filtered LowestPrice = %v, want 3.00", filtered.Stats.LowestPrice)
	}
}
