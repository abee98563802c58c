package api

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// websocketHandler upgrades the connection and hands it to the
// ConnectionManager's blocking read loop, exactly as manager_test.go's
// setupTestManager does for its httptest server.
func (s *Server) websocketHandler(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, wsAcceptOptions(s.allowedWSOrigins))
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	s.connManager.HandleConnection(c.Request.Context(), conn)
}
