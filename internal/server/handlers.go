package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pycall/internal/logging"
	"pycall/internal/streaming"
)

// ExtractRequest is the batch extraction request body.
type ExtractRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleExtract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text field is required"})
		return
	}

	start := time.Now()
	res := s.extractor.Extract(req.Text)
	s.metrics.RecordExtract(c.Request.Context(), len(res.ToolCalls), time.Since(start))
	if res.Err != nil {
		s.metrics.RecordParseError(c.Request.Context(), res.Err.Kind.String())
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

// StreamRequest is one client message on a streaming session: a chunk of
// model text, and Final on the last message to force-close the session.
type StreamRequest struct {
	Chunk string `json:"chunk"`
	Final bool   `json:"final"`
}

// StreamResponse wraps a delta; Done marks the closing message.
type StreamResponse struct {
	Delta *streaming.Delta `json:"delta,omitempty"`
	Done  bool             `json:"done,omitempty"`
}

// handleStream upgrades to WebSocket and runs one streaming session per
// connection. Deltas are pushed as soon as chunks settle them.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	st := streaming.NewState(streaming.Options{
		Limits:           s.cfg.Limits.ParserLimits(),
		Lexer:            s.cfg.Dialect.LexerOptions(),
		ProvisionalIndex: s.cfg.Extract.ProvisionalIndex,
		Logger:           logging.FromObservability(s.log, "stream"),
	})

	for {
		var req StreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			// Client went away: close out the session silently.
			st.Finalize()
			return
		}
		if req.Chunk != "" {
			if d := st.AdvanceChunk(req.Chunk); d != nil {
				s.metrics.RecordStreamDelta(c.Request.Context())
				if err := conn.WriteJSON(StreamResponse{Delta: d}); err != nil {
					return
				}
			}
		}
		if req.Final {
			resp := StreamResponse{Done: true}
			if d := st.Finalize(); d != nil {
				s.metrics.RecordStreamDelta(c.Request.Context())
				resp.Delta = d
			}
			conn.WriteJSON(resp)
			return
		}
	}
}
