package listing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

var testRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.75,
	"CAD": 1.35,
}

func testParser() *Parser {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewParser(testRates, logger)
}

// block renders one listing fragment the way the sell page does: media and
// sleeve condition, seller location, and a price cell.
func block(mediaGrade, sleeveGrade, country, priceHTML string) string {
	return fmt.Sprintf(
		`<div class="item">Media Condition: <span class="cond">%s</span>`+
			` Sleeve Condition: <span>%s</span>`+
			` <b>Ships From:</b><span>%s</span>`+
			` <span class="price">%s</span></div>`,
		mediaGrade, sleeveGrade, country, priceHTML)
}

// sidebarFilters mimics the marketplace sidebar, whose condition filter
// headings segment like listings but carry no shipping origin.
const sidebarFilters = `<aside><h3>Media Condition:</h3>` +
	`<a>Mint (M) (3)</a><a>Near Mint (NM or M-) (12)</a>` +
	`<a>Very Good Plus (VG+) (40)</a>` +
	`<p>More than $40</p></aside>`

func TestParsePageTotalFromPagination(t *testing.T) {
	html := `<p>1 - 25 of 150</p>` +
		block("Near Mint (NM or M-)", "Very Good (VG)", "United States", "$25.00")

	stats := testParser().ParsePage(html, Filters{})
	if stats.Total != 150 {
		t.Errorf("Total = %d, want 150", stats.Total)
	}
	if stats.OnPageCount != 1 || stats.MatchedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", stats.OnPageCount, stats.MatchedCount)
	}
}

func TestParsePagePaginationSeparatorVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "hyphen", text: "1 - 25 of 150", want: 150},
		{name: "en dash", text: "26 – 50 of 1,204", want: 1204},
		{name: "em dash", text: "1 — 25 of 99", want: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := testParser().ParsePage("<p>"+tt.text+"</p>", Filters{})
			if stats.Total != tt.want {
				t.Errorf("Total = %d, want %d", stats.Total, tt.want)
			}
		})
	}
}

func TestParsePageSidebarDecoyNeverBecomesPrice(t *testing.T) {
	html := sidebarFilters +
		block("Near Mint (NM or M-)", "Near Mint (NM or M-)", "United States", "$25.00")

	stats := testParser().ParsePage(html, Filters{})
	if stats.OnPageCount != 1 {
		t.Fatalf("OnPageCount = %d, want 1 (sidebar fragments must be rejected)", stats.OnPageCount)
	}
	if stats.Lowest == nil || *stats.Lowest != 25.00 {
		t.Errorf("Lowest = %v, want 25.00 (never 40, 0 or a sidebar number)", stats.Lowest)
	}
}

func TestParsePageShippingAddOnIgnored(t *testing.T) {
	html := block("Very Good Plus (VG+)", "Very Good (VG)", "United States",
		"$50.00 +$6.00 shipping $56.00")

	stats := testParser().ParsePage(html, Filters{})
	if len(stats.Prices) != 1 || stats.Prices[0] != 50.00 {
		t.Errorf("Prices = %v, want [50.00]", stats.Prices)
	}
}

func TestParsePageConversionAnnotationIgnored(t *testing.T) {
	html := block("Very Good Plus (VG+)", "Very Good (VG)", "Germany",
		"€80.00 about $94.12 $50.00")

	stats := testParser().ParsePage(html, Filters{})
	if len(stats.Prices) != 1 || stats.Prices[0] != 50.00 {
		t.Errorf("Prices = %v, want [50.00]", stats.Prices)
	}
}

func TestParsePageNativeCurrencyConverted(t *testing.T) {
	html := block("Very Good Plus (VG+)", "Very Good (VG)", "Germany",
		"€80.00 about $94.12")

	stats := testParser().ParsePage(html, Filters{})
	if len(stats.Prices) != 1 || stats.Prices[0] != 94.12 {
		t.Errorf("Prices = %v, want [94.12] (80 EUR at 0.85/USD)", stats.Prices)
	}
}

func TestParsePageUnknownCurrencyYieldsNoPrice(t *testing.T) {
	parser := NewParser(map[string]float64{"USD": 1.0}, nil)
	html := block("Very Good Plus (VG+)", "Very Good (VG)", "France", "€80.00")

	stats := parser.ParsePage(html, Filters{})
	if stats.OnPageCount != 1 {
		t.Errorf("OnPageCount = %d, want 1 (listing still counts)", stats.OnPageCount)
	}
	if len(stats.Prices) != 0 || stats.Lowest != nil {
		t.Errorf("Prices = %v, Lowest = %v, want none", stats.Prices, stats.Lowest)
	}
}

func TestParsePageCanadianDollars(t *testing.T) {
	html := block("Near Mint (NM or M-)", "Near Mint (NM or M-)", "Canada", "CA$27.00")

	stats := testParser().ParsePage(html, Filters{})
	if len(stats.Prices) != 1 || stats.Prices[0] != 20.00 {
		t.Errorf("Prices = %v, want [20.00] (27 CAD at 1.35/USD)", stats.Prices)
	}
}

func TestParsePageNoResults(t *testing.T) {
	html := `<p>No items for sale</p><footer>support us from $1.01 a month</footer>`

	stats := testParser().ParsePage(html, Filters{})
	if stats.Total != 0 || stats.OnPageCount != 0 || len(stats.Prices) != 0 {
		t.Errorf("stats = %+v, want all-zero with no prices", stats)
	}
}

func TestParsePageFallbackTotalWithoutPagination(t *testing.T) {
	html := block("Very Good (VG)", "Good (G)", "United Kingdom", "£10.00") +
		block("Mint (M)", "Mint (M)", "Japan", "$55.00")

	stats := testParser().ParsePage(html, Filters{})
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2 (falls back to on-page count)", stats.Total)
	}
}

func TestParsePageCountsCappedByPagination(t *testing.T) {
	// one real listing plus a stray marker occurrence further down the page
	html := `<p>1 - 1 of 1</p>` +
		block("Mint (M)", "Mint (M)", "United States", "$12.00") +
		block("Mint (M)", "Mint (M)", "United States", "$13.00")

	stats := testParser().ParsePage(html, Filters{})
	if stats.OnPageCount != 1 || stats.MatchedCount != 1 {
		t.Errorf("counts = %d/%d, want capped at 1", stats.OnPageCount, stats.MatchedCount)
	}
}

func TestParsePageVGPlusFilterUsesMediaConditionOnly(t *testing.T) {
	// media VG+ but sleeve Poor: must pass the filter
	html := block("Very Good Plus (VG+)", "Poor (P)", "United States", "$30.00") +
		// media VG: must be excluded even with a Mint sleeve
		block("Very Good (VG)", "Mint (M)", "United States", "$5.00")

	stats := testParser().ParsePage(html, Filters{VGPlus: true})
	if stats.OnPageCount != 2 {
		t.Errorf("OnPageCount = %d, want 2 (filter does not affect on-page count)", stats.OnPageCount)
	}
	if stats.MatchedCount != 1 {
		t.Errorf("MatchedCount = %d, want 1", stats.MatchedCount)
	}
	if stats.Lowest == nil || *stats.Lowest != 30.00 {
		t.Errorf("Lowest = %v, want 30.00", stats.Lowest)
	}
}

func TestParsePageUSOnlyFilter(t *testing.T) {
	html := block("Mint (M)", "Mint (M)", "United States", "$20.00") +
		block("Mint (M)", "Mint (M)", "Germany", "$8.00")

	stats := testParser().ParsePage(html, Filters{USOnly: true})
	if stats.MatchedCount != 1 {
		t.Errorf("MatchedCount = %d, want 1", stats.MatchedCount)
	}
	if stats.Lowest == nil || *stats.Lowest != 20.00 {
		t.Errorf("Lowest = %v, want 20.00", stats.Lowest)
	}
}

func TestParsePageSevenListingScenario(t *testing.T) {
	blocks := []string{
		block("Very Good (VG)", "Good (G)", "United States", "$1.99"),
		block("Very Good Plus (VG+)", "Very Good (VG)", "United States", "$3.00"),
		block("Very Good Plus (VG+)", "Very Good Plus (VG+)", "Germany", "$4.50"),
		block("Near Mint (NM or M-)", "Near Mint (NM or M-)", "United States", "$6.00"),
		block("Near Mint (NM or M-)", "Very Good Plus (VG+)", "Japan", "$9.99"),
		block("Mint (M)", "Mint (M)", "United States", "$15.00"),
		block("Mint (M)", "Near Mint (NM or M-)", "Canada", "CA$27.00"),
	}
	html := sidebarFilters + strings.Join(blocks, "\n")

	unfiltered := testParser().ParsePage(html, Filters{})
	if unfiltered.OnPageCount != 7 || unfiltered.MatchedCount != 7 {
		t.Fatalf("unfiltered counts = %d/%d, want 7/7", unfiltered.OnPageCount, unfiltered.MatchedCount)
	}
	if unfiltered.Lowest == nil || *unfiltered.Lowest != 1.99 {
		t.Errorf("unfiltered Lowest = %v, want 1.99", unfiltered.Lowest)
	}

	filtered := testParser().ParsePage(html, Filters{VGPlus: true})
	if filtered.MatchedCount != 6 {
		t.Errorf("filtered MatchedCount = %d, want 6", filtered.MatchedCount)
	}
	if filtered.Lowest == nil || *filtered.Lowest != 3.00 {
		t.Errorf("filtered Lowest = %v, want 3.00", filtered.Lowest)
	}
}

func TestParsePageMalformedContentDegradesToZero(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "empty document", html: ""},
		{name: "unrelated html", html: "<html><body><h1>hello</h1></body></html>"},
		{name: "marker with no listing fields", html: "Media Condition: something else entirely"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := testParser().ParsePage(tt.html, Filters{})
			if stats.Total != 0 || stats.OnPageCount != 0 || stats.Lowest != nil {
				t.Errorf("stats = %+v, want zero counts and nil lowest", stats)
			}
		})
	}
}

func TestParseListingsMergesPages(t *testing.T) {
	page1 := `<p>1 - 2 of 4</p>` +
		block("Mint (M)", "Mint (M)", "United States", "$10.00") +
		block("Very Good Plus (VG+)", "Very Good (VG)", "United States", "$8.00")
	page2 := `<p>3 - 4 of 4</p>` +
		block("Very Good (VG)", "Good (G)", "United States", "$2.00") +
		block("Near Mint (NM or M-)", "Mint (M)", "Germany", "$12.00")

	pages := []string{page1, page2}
	fetch := func(ctx context.Context, page int) (string, error) {
		return pages[page-1], nil
	}

	stats, err := testParser().ParseListings(context.Background(), fetch, Filters{}, 5, 2)
	if err != nil {
		t.Fatalf("ParseListings() error = %v", err)
	}
	if stats.Total != 4 || stats.OnPageCount != 4 || stats.MatchedCount != 4 {
		t.Errorf("stats = %+v, want 4/4/4", stats)
	}
	if stats.Lowest == nil || *stats.Lowest != 2.00 {
		t.Errorf("Lowest = %v, want 2.00", stats.Lowest)
	}
}

func TestParseListingsExtrapolatesMatched(t *testing.T) {
	// 50 listings total, only the first page (4 listings) fetched under a
	// page cap of 1; 2 of 4 match, so the extrapolated matched count is 25.
	page1 := `<p>1 - 4 of 50</p>` +
		block("Mint (M)", "Mint (M)", "United States", "$10.00") +
		block("Very Good (VG)", "Good (G)", "United States", "$2.00") +
		block("Near Mint (NM or M-)", "Mint (M)", "United States", "$12.00") +
		block("Good (G)", "Good (G)", "United States", "$1.00")

	fetch := func(ctx context.Context, page int) (string, error) {
		return page1, nil
	}

	stats, err := testParser().ParseListings(context.Background(), fetch, Filters{VGPlus: true}, 1, 4)
	if err != nil {
		t.Fatalf("ParseListings() error = %v", err)
	}
	if stats.OnPageCount != 4 {
		t.Errorf("OnPageCount = %d, want 4", stats.OnPageCount)
	}
	if stats.MatchedCount != 25 {
		t.Errorf("MatchedCount = %d, want 25 (round(2/4 * 50))", stats.MatchedCount)
	}
}

func TestParseListingsStopsOnShortPage(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, page int) (string, error) {
		calls++
		return block("Mint (M)", "Mint (M)", "United States", "$10.00"), nil
	}

	if _, err := testParser().ParseListings(context.Background(), fetch, Filters{}, 10, 25); err != nil {
		t.Fatalf("ParseListings() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetched %d pages, want 1 (short page stops paging)", calls)
	}
}
