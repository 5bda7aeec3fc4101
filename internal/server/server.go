package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/discogs"
	"github.com/Eric-A99/discogs-preview/internal/listing"
	"github.com/Eric-A99/discogs-preview/internal/middleware"
	"github.com/Eric-A99/discogs-preview/internal/services/discovery"
	"github.com/Eric-A99/discogs-preview/internal/services/lookup"
	"github.com/Eric-A99/discogs-preview/internal/types"
	"github.com/Eric-A99/discogs-preview/pkg/config"
	"github.com/Eric-A99/discogs-preview/pkg/logging"
)

// Server represents the HTTP server
type Server struct {
	router             *http.ServeMux
	lookup             types.PriceLookup
	discogs            types.DiscogsService
	config             *config.Config
	logger             *logging.Logger
	rateLimiter        *middleware.RateLimiter
	securityMiddleware *middleware.SecurityMiddleware
	loggingMiddleware  *middleware.LoggingMiddleware
	server             *http.Server
}

// NewServer creates a new server instance with all components properly wired
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		panic("configuration cannot be nil")
	}

	// Set default logging configuration if not provided
	loggingCfg := cfg.Logging
	if loggingCfg.Level == "" {
		loggingCfg.Level = "info"
	}
	if loggingCfg.Format == "" {
		loggingCfg.Format = "json"
	}
	if loggingCfg.Output == "" {
		loggingCfg.Output = "stdout"
	}

	// Initialize structured logger (foundation component)
	logger := logging.NewLogger(loggingCfg)
	logger.WithComponent("server").Info("Initializing server components")

	// Initialize Discogs client with the shared outbound budget
	clientCfg := discogs.DefaultClientConfig()
	clientCfg.Token = cfg.Discogs.Token
	if cfg.Discogs.BaseURL != "" {
		clientCfg.BaseURL = cfg.Discogs.BaseURL
	}
	if cfg.Discogs.UserAgent != "" {
		clientCfg.UserAgent = cfg.Discogs.UserAgent
	}
	budget := discogs.NewBudget(cfg.Discogs.RequestsPerMinute, time.Minute)
	discogsClient := discogs.NewClient(clientCfg, budget, logger.Logger)

	// Initialize discovery (candidate search)
	discoveryCfg := discovery.DefaultConfig()
	if cfg.Scrape.SearchURL != "" {
		discoveryCfg.SearchURL = cfg.Scrape.SearchURL
	}
	if cfg.Scrape.MaxCandidates > 0 {
		discoveryCfg.MaxCandidates = cfg.Scrape.MaxCandidates
	}
	discoveryService := discovery.NewSearcher(discoveryCfg, logger.Logger)

	// Initialize the lookup pipeline
	lookupCfg := lookup.DefaultConfig()
	if cfg.Scrape.PageCap > 0 {
		lookupCfg.PageCap = cfg.Scrape.PageCap
	}
	if cfg.Cache.TTL > 0 {
		lookupCfg.CacheTTL = cfg.Cache.TTL
	}
	if cfg.Cache.MaxEntries > 0 {
		lookupCfg.CacheEntries = cfg.Cache.MaxEntries
	}
	parser := listing.NewParser(listing.DefaultExchangeRates, logger.Logger)
	lookupService := lookup.NewService(discogsClient, discoveryService, parser, lookupCfg, logger.Logger)

	// Initialize rate limiter with default values if not configured
	requestsPerSecond := cfg.Security.RateLimit.RequestsPerSecond
	if requestsPerSecond == 0 {
		requestsPerSecond = 10
	}
	burst := cfg.Security.RateLimit.Burst
	if burst == 0 {
		burst = 20
	}

	rateLimiter := middleware.NewRateLimiter(requestsPerSecond, burst)
	securityMiddleware := middleware.NewSecurityMiddleware(logger.Logger, rateLimiter)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)

	logger.WithComponent("server").WithFields(logrus.Fields{
		"token_configured": cfg.Discogs.Token != "",
		"rate_limit_rps":   requestsPerSecond,
		"rate_limit_burst": burst,
		"logging_level":    loggingCfg.Level,
		"http_logging":     loggingCfg.EnableHTTP,
	}).Info("Server components initialized successfully")

	return &Server{
		router:             http.NewServeMux(),
		lookup:             lookupService,
		discogs:            discogsClient,
		config:             cfg,
		logger:             logger,
		rateLimiter:        rateLimiter,
		securityMiddleware: securityMiddleware,
		loggingMiddleware:  loggingMiddleware,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.WithComponent("server").WithFields(logrus.Fields{
		"address": s.config.Server.Address(),
	}).Info("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.WithComponent("server").Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes with security and logging middleware
func (s *Server) setupRoutes() {
	protectedMux := http.NewServeMux()

	protectedMux.HandleFunc("/api/lookup", s.handleLookup)
	protectedMux.HandleFunc("/api/healthz", s.handleHealthz)

	// Apply security middleware chain
	var handler http.Handler = protectedMux
	handler = s.securityMiddleware.SecurityHeaders(
		s.securityMiddleware.RateLimit(
			s.securityMiddleware.InputValidation(handler),
		),
	)

	// Apply logging middleware (outermost layer)
	if s.config.Logging.EnableHTTP {
		handler = s.loggingMiddleware.LogRequests(handler)
	}

	s.router.Handle("/", handler)
}
