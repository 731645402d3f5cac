package server

import (
	"github.com/gin-gonic/gin"

	"pycall/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware threads a request id through the context and echoes
// it back in the response headers. Client-supplied ids are kept.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := observability.WithRequestID(c.Request.Context(), c.GetHeader(requestIDHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, observability.RequestIDFromContext(ctx))
		c.Next()
	}
}

func (s *Server) tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := s.tracer.StartSpan(c.Request.Context(), c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
