// Package main provides diagram generation utilities for the discogs-preview
// project.
//
// This application generates architectural and component diagrams for the
// vinyl price lookup service using the go-diagrams library. The generated
// diagrams are saved as .dot files in the docs/diagrams/go-diagrams/
// directory and can be converted to various image formats using Graphviz.
//
// Usage:
//
//	go run cmd/diagrams/main.go
//
// This will generate:
//   - architecture.dot: High-level architecture showing the lookup flow
//   - components.dot: Component relationships and dependencies
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/blushft/go-diagrams/diagram"
	"github.com/blushft/go-diagrams/nodes/generic"
	"github.com/blushft/go-diagrams/nodes/programming"
)

func main() {
	// Ensure output directory exists
	if err := os.MkdirAll("docs/diagrams", 0o750); err != nil {
		log.Fatal("Failed to create output directory:", err)
	}

	// Change to docs/diagrams directory
	if err := os.Chdir("docs/diagrams"); err != nil {
		log.Fatal("Failed to change directory:", err)
	}

	generateArchitectureDiagram()
	generateComponentDiagram()

	fmt.Println("Diagram .dot files generated successfully in ./docs/diagrams/go-diagrams/")
}

// generateArchitectureDiagram creates a high-level architecture diagram
// showing how a lookup request flows from the browser extension through the
// pipeline to the external Discogs endpoints.
func generateArchitectureDiagram() {
	d, err := diagram.New(diagram.Filename("architecture"), diagram.Label("Discogs-Preview Architecture"), diagram.Direction("TB"))
	if err != nil {
		log.Fatal(err)
	}

	// Define components
	extension := generic.Blank.Blank(diagram.NodeLabel("Browser Extension\n(lookup client)"))
	httpServer := programming.Language.Go(diagram.NodeLabel("HTTP Server\n(/api/lookup)"))
	lookupService := programming.Language.Go(diagram.NodeLabel("Lookup Pipeline\n(clean, split, verify)"))
	discoveryService := programming.Language.Go(diagram.NodeLabel("Discovery\n(search-engine scrape)"))
	listingParser := programming.Language.Go(diagram.NodeLabel("Listing Parser\n(sell-page rules)"))
	discogsAPI := generic.Blank.Blank(diagram.NodeLabel("Discogs API\n+ Marketplace"))
	config := generic.Blank.Blank(diagram.NodeLabel("Configuration\n(env/godotenv)"))
	logging := generic.Blank.Blank(diagram.NodeLabel("Logging\n(logrus)"))

	// Create connections
	d.Connect(extension, httpServer, diagram.Forward())
	d.Connect(httpServer, lookupService, diagram.Forward())
	d.Connect(lookupService, discoveryService, diagram.Forward())
	d.Connect(lookupService, listingParser, diagram.Forward())
	d.Connect(lookupService, discogsAPI, diagram.Forward())
	d.Connect(httpServer, config, diagram.Forward())
	d.Connect(httpServer, logging, diagram.Forward())

	if err := d.Render(); err != nil {
		log.Fatal(err)
	}
}

// generateComponentDiagram creates a detailed component diagram showing the
// relationships and dependencies between the project's packages.
func generateComponentDiagram() {
	d, err := diagram.New(diagram.Filename("components"), diagram.Label("Discogs-Preview Components"), diagram.Direction("LR"))
	if err != nil {
		log.Fatal(err)
	}

	// Main components
	main := programming.Language.Go(diagram.NodeLabel("main.go"))
	rootCmd := programming.Language.Go(diagram.NodeLabel("cmd/discogs-preview\nroot.go"))
	serveCmd := programming.Language.Go(diagram.NodeLabel("cmd/discogs-preview\nserve.go"))
	lookupCmd := programming.Language.Go(diagram.NodeLabel("cmd/discogs-preview\nlookup.go"))
	server := programming.Language.Go(diagram.NodeLabel("internal/server\nserver.go"))

	// Services
	lookupService := programming.Language.Go(diagram.NodeLabel("internal/services/lookup\nlookup.go"))
	discoveryService := programming.Language.Go(diagram.NodeLabel("internal/services/discovery\ndiscovery.go"))
	discogsClient := programming.Language.Go(diagram.NodeLabel("internal/discogs\nclient, urls, ratelimit"))
	listingParser := programming.Language.Go(diagram.NodeLabel("internal/listing\nparser, rules"))
	matcher := programming.Language.Go(diagram.NodeLabel("internal/match + query\n+ textutil + grade"))
	pricing := programming.Language.Go(diagram.NodeLabel("internal/pricing\naggregate.go"))
	cache := programming.Language.Go(diagram.NodeLabel("internal/cache\ncache.go"))

	// Middleware
	middleware := programming.Language.Go(diagram.NodeLabel("internal/middleware\nlogging, security, ratelimit"))

	// Packages
	config := programming.Language.Go(diagram.NodeLabel("pkg/config\nconfig.go"))
	version := programming.Language.Go(diagram.NodeLabel("pkg/version\nversion.go"))
	man := programming.Language.Go(diagram.NodeLabel("pkg/man\nman.go"))
	logging := programming.Language.Go(diagram.NodeLabel("pkg/logging\nlogger.go"))

	// Create connections showing the flow
	d.Connect(main, rootCmd, diagram.Forward())
	d.Connect(rootCmd, serveCmd, diagram.Forward())
	d.Connect(rootCmd, lookupCmd, diagram.Forward())
	d.Connect(serveCmd, server, diagram.Forward())
	d.Connect(server, middleware, diagram.Forward())
	d.Connect(server, lookupService, diagram.Forward())
	d.Connect(lookupCmd, lookupService, diagram.Forward())
	d.Connect(lookupService, discoveryService, diagram.Forward())
	d.Connect(lookupService, discogsClient, diagram.Forward())
	d.Connect(lookupService, listingParser, diagram.Forward())
	d.Connect(lookupService, matcher, diagram.Forward())
	d.Connect(lookupService, pricing, diagram.Forward())
	d.Connect(lookupService, cache, diagram.Forward())
	d.Connect(rootCmd, config, diagram.Forward())
	d.Connect(rootCmd, version, diagram.Forward())
	d.Connect(rootCmd, man, diagram.Forward())
	d.Connect(server, logging, diagram.Forward())

	if err := d.Render(); err != nil {
		log.Fatal(err)
	}
}
