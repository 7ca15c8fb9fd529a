// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers the logging side of the chain: RequestID tags every
// request with a correlation id, Logger emits one structured access-log
// line per request and attaches a request-scoped zerolog.Logger under the
// "logger" context key, and Recovery turns panics into JSON 500 responses.
// Handlers reach the scoped logger through LoggerFrom.
//
// Install them in that order so the access log and the panic log both
// carry the correlation id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	// Raw query strings are capped in logs; figure lists are short but
	// clients can send arbitrary junk.
	maxQueryLogLength = 2048
)

// RequestID reuses the client's X-Request-ID when present, otherwise mints
// a UUIDv4. The id is stored in the context and echoed on the response so
// clients can quote it when reporting failures.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log entry per request.
//
// The log level follows the outcome: error for 5xx or when the context
// collected errors, warn for 4xx, info otherwise. The path field uses the
// route pattern when one matched, so /stories/7 logs as /stories/:id; 404s
// log the raw URL. A logger pre-tagged with the request fields is stored
// under the "logger" key for handlers to use.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		uid, _ := c.Get("userID")
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", asString(uid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set("logger", &l)

		c.Next()

		entry := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			entry.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			entry.Error().Msg("request")
		case status >= 400:
			entry.Warn().Msg("request")
		default:
			entry.Info().Msg("request")
		}
	}
}

// Recovery logs the panic value with a stack trace and answers with a JSON
// 500 envelope. When the handler already wrote part of a response, only the
// status is forced; no body is appended to the partial output.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if c.Writer.Written() {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Header("Content-Type", "application/json")
				c.Header(requestIDHeader, asString(rid))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": asString(rid),
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by Logger, or a
// bare fallback when the middleware is not installed. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes and marks the cut with an ellipsis. Byte
// truncation can split a rune, which is acceptable for log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
