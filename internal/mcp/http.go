package mcp

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// protocolVersionHeader is the header spec.md §6 requires on every request.
const protocolVersionHeader = "MCP-Protocol-Version"

// HTTPServer wraps Server with the gin-based HTTP transport spec.md §6
// names: a single JSON-RPC POST endpoint plus a health probe (/healthz)
// and Prometheus metrics (/metrics).
type HTTPServer struct {
	server  *Server
	timeout time.Duration
	logger  *zap.Logger
	engine  *gin.Engine
}

// NewHTTPServer builds the gin engine and mounts the MCP endpoint at path.
// timeout is spec.md §6's REQUEST_TIMEOUT_SECONDS budget: exceeding it
// aborts the request context and yields a Timeout envelope with no
// partial visible state (spec.md §5).
func NewHTTPServer(server *Server, path string, timeout time.Duration, corsOrigins []string, logger *zap.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(corsOrigins) == 1 && corsOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Content-Type", protocolVersionHeader)
	corsConfig.AllowMethods = []string{"POST", "OPTIONS"}
	engine.Use(cors.New(corsConfig))

	h := &HTTPServer{server: server, timeout: timeout, logger: logger, engine: engine}
	engine.POST(path, h.handleRPC)
	engine.GET("/healthz", h.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return h
}

// Handler returns the http.Handler to pass to http.Server.
func (h *HTTPServer) Handler() http.Handler {
	return h.engine
}

func (h *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPServer) handleRPC(c *gin.Context) {
	if c.GetHeader(protocolVersionHeader) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": protocolVersionHeader + " header is required"})
		return
	}
	if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content-Type must be application/json"})
		return
	}
	if accept := c.GetHeader("Accept"); !strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/event-stream") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Accept must include application/json or text/event-stream"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 10*1024*1024))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := h.server.HandleMessage(ctx, body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.JSON(http.StatusOK, resp)
}
