package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/discogs"
	"github.com/Eric-A99/discogs-preview/internal/services/lookup"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

// handleLookup resolves pricing statistics for a raw title or a pre-split
// artist/track query.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.LookupRequest
	if err := s.parseJSONRequest(r, &req); err != nil {
		s.logger.WithContext(r.Context()).WithField("component", "server").WithError(err).Warn("Invalid JSON request")
		s.writeJSONError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := s.validateLookupRequest(&req); err != nil {
		s.logger.WithContext(r.Context()).WithError(err).WithFields(logrus.Fields{
			"component": "server",
			"title":     req.Title,
			"artist":    req.Artist,
			"track":     req.Track,
		}).Warn("Invalid lookup request")
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"component":  "server",
		"operation":  "lookup",
		"title":      req.Title,
		"artist":     req.Artist,
		"track":      req.Track,
		"us_only":    req.USOnly,
		"vg_plus":    req.VGPlus,
		"release_id": req.ReleaseID,
	}).Info("Processing lookup request")

	result, err := s.lookup.Lookup(r.Context(), req)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}

	s.writeJSONResponse(w, types.APIResponse{Success: true, Data: result}, http.StatusOK)
}

// writeLookupError maps pipeline errors to their API representations. The
// missing-token and no-results conditions get dedicated bodies so the client
// can show their distinct states; everything else collapses to a generic
// retryable error.
func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, discogs.ErrNoToken):
		s.writeJSONError(w, "no token configured", http.StatusUnauthorized)
	case errors.Is(err, lookup.ErrNoResults):
		s.writeJSONError(w, "no results found", http.StatusNotFound)
	default:
		s.logger.WithContext(r.Context()).WithField("component", "server").WithError(err).Error("Lookup failed")
		s.writeJSONError(w, "Lookup failed, please try again", http.StatusInternalServerError)
	}
}

// handleHealthz reports liveness and whether a Discogs token is configured
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSONResponse(w, types.APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":           "ok",
			"token_configured": s.discogs.HasToken(),
		},
	}, http.StatusOK)
}

// Helper methods

// parseJSONRequest parses JSON request body into the provided struct
func (s *Server) parseJSONRequest(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// validateLookupRequest validates the lookup request
func (s *Server) validateLookupRequest(req *types.LookupRequest) error {
	title := strings.TrimSpace(req.Title)
	track := strings.TrimSpace(req.Track)
	if title == "" && track == "" && req.ReleaseID == 0 {
		return fmt.Errorf("a title, a track or a release id is required")
	}
	if len(req.Title) > 300 {
		return fmt.Errorf("title too long (max 300 characters)")
	}
	if req.ReleaseID < 0 {
		return fmt.Errorf("release id must be positive")
	}
	return nil
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("component", "server").WithError(err).Error("Failed to encode JSON response")
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	response := types.APIResponse{
		Success: false,
		Error:   message,
	}
	s.writeJSONResponse(w, response, statusCode)
}
