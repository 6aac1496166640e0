package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/smartsim-dev/smartsim/internal/models"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "session"
)

func setSession(c *gin.Context, s models.Session) {
	c.Set(sessionKey, s)
}

// GetSession returns the snapshot the route gate evaluated for this request
func GetSession(c *gin.Context) (models.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str(requestIDKey, c.GetString(requestIDKey)).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// requestIDMiddleware tags every request with a ULID, reusing a valid incoming one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := ulid.ParseStrict(id); err != nil {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str(requestIDKey, c.GetString(requestIDKey)).
			Msg("HTTP request")
	}
}

// gate runs the route gate for page against the current session snapshot
// and redirects when the page is not allowed
func (s *Server) gate(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := s.manager.Snapshot()

		_, decision, err := s.routes.Resolve(page, snapshot)
		if err != nil {
			respondWithError(c, s.logger, http.StatusNotFound, err, "Page not found")
			return
		}

		if !decision.Allowed() {
			s.logger.Debug().
				Str("route", page).
				Str("redirect", decision.Redirect).
				Str(requestIDKey, c.GetString(requestIDKey)).
				Msg("Route gate redirect")
			c.Redirect(http.StatusSeeOther, decision.Redirect)
			c.Abort()
			return
		}

		setSession(c, snapshot)
		c.Next()
	}
}
