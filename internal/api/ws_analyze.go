package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/logging"
)

// WSFrame is every message the server writes on /ws/analyze.
type WSFrame struct {
	Type    string           `json:"type"` // "status", "report" or "error"
	Message string           `json:"message,omitempty"`
	Result  *AnalyzeResponse `json:"result,omitempty"`
}

const statusAnalyzing = "Analyzing security configuration..."

// wsReadTimeout bounds the wait for the client's analyze message.
var wsReadTimeout = 30 * time.Second

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket connection wrapper with mutex for thread-safe writes
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) fail(msg string) {
	s.WriteJSON(WSFrame{Type: "error", Message: msg})
}

// GET /ws/analyze reads one AnalyzeRequest, sends a status frame, then a
// report or error frame, and closes.
func WSAnalyzeHandler(cfg *config.Config, svc *Services) gin.HandlerFunc {
	log := logging.For("WS")
	return func(c *gin.Context) {
		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		limit := int64(cfg.Server.MaxUploadMB) << 20
		rawConn.SetReadLimit(limit + 4096)
		conn := &safeWSConn{conn: rawConn}
		defer rawConn.Close()

		rawConn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := rawConn.ReadMessage()
		if err != nil {
			conn.fail("invalid initial payload")
			return
		}
		var req AnalyzeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.fail("invalid JSON")
			return
		}
		areq, err := req.toAnalysisRequest(c, svc)
		if err != nil {
			_, text := errorStatus(err)
			conn.fail(text)
			return
		}
		if int64(len(areq.Config)) > limit {
			_, text := errorStatus(errConfigTooLarge)
			conn.fail(text)
			return
		}

		if err := conn.WriteJSON(WSFrame{Type: "status", Message: statusAnalyzing}); err != nil {
			return
		}
		rep, err := svc.Analyzer.Analyze(c.Request.Context(), areq)
		if err != nil {
			_, text := errorStatus(err)
			conn.fail(text)
			return
		}
		resp := responseFrom(rep)
		conn.WriteJSON(WSFrame{Type: "report", Result: &resp})
	}
}
