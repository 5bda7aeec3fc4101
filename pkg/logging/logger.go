package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/pkg/config"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs
	CorrelationIDKey ContextKey = "correlation_id"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new configured logger instance
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel // Default to info level
	}
	logger.SetLevel(level)

	// Set log format
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		// Default to JSON for structured logging
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	// Set output destination
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(os.Stdout) // Default to stdout
	}

	return &Logger{Logger: logger}
}

// WithCorrelationID adds a correlation ID to the logger context
func (l *Logger) WithCorrelationID(correlationID string) *logrus.Entry {
	return l.WithField("correlation_id", correlationID)
}

// WithContext extracts correlation ID from context and adds it to the logger
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok && correlationID != "" {
		return l.WithCorrelationID(correlationID)
	}
	return l.WithFields(logrus.Fields{})
}

// WithComponent adds a component field to the logger for better categorization
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithOperation adds an operation field to the logger for tracking specific operations
func (l *Logger) WithOperation(operation string) *logrus.Entry {
	return l.WithField("operation", operation)
}

// LogQueryParse logs how a raw title was cleaned and split
func (l *Logger) LogQueryParse(ctx context.Context, rawTitle, artist, track string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"component": "query",
		"operation": "parse",
		"raw_title": rawTitle,
		"artist":    artist,
		"track":     track,
	}).Info("Query parsed")
}

// LogCandidateVerification logs the outcome of verifying one discovery candidate
func (l *Logger) LogCandidateVerification(ctx context.Context, entityKey, title string, matched bool) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"component": "lookup",
		"operation": "verify_candidate",
		"entity":    entityKey,
		"title":     title,
		"matched":   matched,
	})

	if matched {
		entry.Info("Candidate verified against tracklist")
	} else {
		entry.Debug("Candidate rejected by tracklist filter")
	}
}

// LogPriceAggregation logs the final aggregate for a query
func (l *Logger) LogPriceAggregation(ctx context.Context, artist, track string, numForSale int, lowest, median *float64) {
	fields := logrus.Fields{
		"component":    "pricing",
		"operation":    "aggregate",
		"artist":       artist,
		"track":        track,
		"num_for_sale": numForSale,
	}
	if lowest != nil {
		fields["lowest_price"] = *lowest
	}
	if median != nil {
		fields["median_price"] = *median
	}
	l.WithContext(ctx).WithFields(fields).Info("Price statistics aggregated")
}

// LogSecurityEvent logs security-related events
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType, clientIP, userAgent, details string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"component":  "security",
		"operation":  "security_event",
		"event_type": eventType,
		"client_ip":  clientIP,
		"user_agent": userAgent,
		"details":    details,
	}).Warn("Security event detected")
}

// LogAPIRequest logs API request details
func (l *Logger) LogAPIRequest(ctx context.Context, method, path, clientIP, userAgent string, statusCode int, duration int64) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "http",
		"operation":   "api_request",
		"method":      method,
		"path":        path,
		"client_ip":   clientIP,
		"user_agent":  userAgent,
		"status_code": statusCode,
		"duration_ms": duration,
	})

	switch {
	case statusCode >= 500:
		entry.Error("API request completed with server error")
	case statusCode >= 400:
		entry.Warn("API request completed with client error")
	default:
		entry.Info("API request completed successfully")
	}
}

// SetOutput allows changing the output destination (useful for testing)
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}
