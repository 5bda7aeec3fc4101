package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxBodySize caps lookup request bodies; queries are a few hundred bytes.
const maxBodySize = 64 * 1024

// SecurityMiddleware provides various security protections
type SecurityMiddleware struct {
	logger      *log.Logger
	rateLimiter *RateLimiter
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(logger *log.Logger, rateLimiter *RateLimiter) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger:      logger,
		rateLimiter: rateLimiter,
	}
}

// SecurityHeaders adds security headers to all responses
func (sm *SecurityMiddleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self'; img-src 'self' data: https:;")

		// Only add HSTS for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit implements rate limiting per IP address
func (sm *SecurityMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if !sm.rateLimiter.Allow(clientIP) {
			sm.logger.WithFields(log.Fields{
				"component":  "security",
				"operation":  "rate_limit",
				"event_type": "rate_limit_exceeded",
				"client_ip":  clientIP,
				"method":     r.Method,
				"path":       r.URL.Path,
				"user_agent": r.UserAgent(),
			}).Warn("Rate limit exceeded")

			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// InputValidation rejects requests with suspicious paths and bounds request
// body size. Query values are left alone: lookup queries are free text and
// arrive in the JSON body, not the URL.
func (sm *SecurityMiddleware) InputValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if containsSuspiciousPatterns(r.URL.Path) {
			sm.logger.WithFields(log.Fields{
				"component":  "security",
				"operation":  "input_validation",
				"event_type": "suspicious_path",
				"client_ip":  getClientIP(r),
				"path":       r.URL.Path,
				"user_agent": r.UserAgent(),
				"method":     r.Method,
			}).Warn("Suspicious path detected")

			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the list
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	if colon := strings.LastIndex(ip, ":"); colon != -1 {
		ip = ip[:colon]
	}
	return ip
}

// containsSuspiciousPatterns checks for common attack patterns in URL paths
func containsSuspiciousPatterns(input string) bool {
	suspiciousPatterns := []string{
		"<script",
		"javascript:",
		"vbscript:",
		"onload=",
		"onerror=",
		"../",
		"..\\",
		"<%",
		"%>",
		"<?",
		"?>",
		"$(",
		"${",
		"`",
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(inputLower, pattern) {
			return true
		}
	}

	return false
}
