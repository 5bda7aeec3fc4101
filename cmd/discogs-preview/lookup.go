package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Eric-A99/discogs-preview/internal/discogs"
	"github.com/Eric-A99/discogs-preview/internal/listing"
	"github.com/Eric-A99/discogs-preview/internal/services/discovery"
	"github.com/Eric-A99/discogs-preview/internal/services/lookup"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

var (
	lookupTitle   string
	lookupArtist  string
	lookupTrack   string
	lookupRelease int
	usOnly        bool
	vgPlus        bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up vinyl pricing for a song title",
	Long: `Resolve a raw title or an artist/track pair to matching vinyl releases and
print marketplace pricing statistics.

Examples:
  # Look up a raw video title
  discogs-preview lookup --title "New Order - Blue Monday (Official Video)"

  # Look up a pre-split query, filtered to VG+ or better
  discogs-preview lookup --artist "New Order" --track "Blue Monday" --vg-plus

  # Pin the lookup to one release, US sellers only
  discogs-preview lookup --release 240780 --us-only`,
	Run: runLookupCommand,
}

func runLookupCommand(cmd *cobra.Command, args []string) {
	if lookupTitle == "" && lookupTrack == "" && lookupRelease == 0 {
		fmt.Fprintln(os.Stderr, "Error: one of --title, --track or --release is required")
		os.Exit(1)
	}

	// Initialize logger
	logger := log.New()
	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	// Initialize the Discogs client with the shared outbound budget
	clientCfg := discogs.DefaultClientConfig()
	clientCfg.Token = conf.Discogs.Token
	if conf.Discogs.BaseURL != "" {
		clientCfg.BaseURL = conf.Discogs.BaseURL
	}
	if conf.Discogs.UserAgent != "" {
		clientCfg.UserAgent = conf.Discogs.UserAgent
	}
	budget := discogs.NewBudget(conf.Discogs.RequestsPerMinute, time.Minute)
	client := discogs.NewClient(clientCfg, budget, logger)

	// Initialize discovery
	discoveryCfg := discovery.DefaultConfig()
	if conf.Scrape.SearchURL != "" {
		discoveryCfg.SearchURL = conf.Scrape.SearchURL
	}
	if conf.Scrape.MaxCandidates > 0 {
		discoveryCfg.MaxCandidates = conf.Scrape.MaxCandidates
	}
	searcher := discovery.NewSearcher(discoveryCfg, logger)

	// Create the lookup pipeline
	lookupCfg := lookup.DefaultConfig()
	if conf.Scrape.PageCap > 0 {
		lookupCfg.PageCap = conf.Scrape.PageCap
	}
	parser := listing.NewParser(listing.DefaultExchangeRates, logger)
	service := lookup.NewService(client, searcher, parser, lookupCfg, logger)

	result, err := service.Lookup(context.Background(), types.LookupRequest{
		Title:     lookupTitle,
		Artist:    lookupArtist,
		Track:     lookupTrack,
		USOnly:    usOnly,
		VGPlus:    vgPlus,
		ReleaseID: lookupRelease,
	})
	if err != nil {
		switch {
		case errors.Is(err, discogs.ErrNoToken):
			fmt.Fprintln(os.Stderr, "Error: no token configured. Set DISCOGS_TOKEN to enable entity lookups.")
		case errors.Is(err, lookup.ErrNoResults):
			fmt.Fprintln(os.Stderr, "No results found.")
		default:
			fmt.Fprintf(os.Stderr, "Error: lookup failed: %v\n", err)
		}
		os.Exit(1)
	}

	displayLookupResult(result)
}

func displayLookupResult(result *types.LookupResult) {
	fmt.Println("\n=== Lookup Results ===")
	if result.Query.Artist != "" {
		fmt.Printf("Artist: %s\n", result.Query.Artist)
	}
	if result.Query.Track != "" {
		fmt.Printf("Track: %s\n", result.Query.Track)
	}
	fmt.Println()

	// Summary
	fmt.Printf("For Sale: %d\n", result.Stats.NumForSale)
	fmt.Printf("Lowest: %s", formatPrice(result.Stats.LowestPrice))
	if result.Stats.LowestGrade != "" {
		fmt.Printf(" (%s)", result.Stats.LowestGrade)
	}
	fmt.Println()
	fmt.Printf("Median: %s\n", formatPrice(result.Stats.MedianPrice))
	if result.Stats.VGPlusPrice != nil {
		fmt.Printf("Suggested VG+: %s\n", formatPrice(result.Stats.VGPlusPrice))
	}
	if result.Stats.NearMintPrice != nil {
		fmt.Printf("Suggested NM: %s\n", formatPrice(result.Stats.NearMintPrice))
	}

	// Per-release breakdown
	if len(result.Matches) > 0 {
		fmt.Println("\n=== Matched Releases ===")
		for _, m := range result.Matches {
			displayMatch(m)
		}
	}
}

func displayMatch(m types.MatchDetail) {
	fmt.Printf("[%s %d] %s", m.Entity.Kind, m.Entity.ID, m.Title)
	if m.Year > 0 {
		fmt.Printf(" (%d)", m.Year)
	}
	fmt.Printf(" - %d for sale, lowest %s", m.Stats.NumForSale, formatPrice(m.Stats.LowestPrice))
	fmt.Printf("\n        %s\n", m.SellURL)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *p)
}

func init() {
	// Add flags
	lookupCmd.Flags().StringVarP(&lookupTitle, "title", "t", "", "Raw title to clean and split (e.g. a video title)")
	lookupCmd.Flags().StringVarP(&lookupArtist, "artist", "a", "", "Artist name (used with --track)")
	lookupCmd.Flags().StringVarP(&lookupTrack, "track", "k", "", "Track name")
	lookupCmd.Flags().IntVarP(&lookupRelease, "release", "r", 0, "Pin the lookup to a single release id")
	lookupCmd.Flags().BoolVar(&usOnly, "us-only", false, "Only count listings shipping from the United States")
	lookupCmd.Flags().BoolVar(&vgPlus, "vg-plus", false, "Only count listings graded VG+ or better")

	// Add to root command
	rootCmd.AddCommand(lookupCmd)
}
