// Package api implements the Gin HTTP surface: webhook/push ingestion
// routes, the WebSocket upgrade endpoint, and the REST surface for
// managing flows, triggers, and running agents on demand. Grounded on
// codeready-toolchain-tarsy's pkg/api/server.go router-setup and
// middleware-chain style (request id, recovery, structured logging),
// adapted from the teacher's Echo-based server to the Gin router that
// internal/trigger/webhook's Handler already mounts its routes on.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/internal/agent"
	"github.com/orbitflow/orbitflow/internal/database"
	"github.com/orbitflow/orbitflow/internal/events"
	"github.com/orbitflow/orbitflow/internal/scheduler"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
	"github.com/orbitflow/orbitflow/internal/trigger/push"
	"github.com/orbitflow/orbitflow/internal/trigger/webhook"
	"github.com/orbitflow/orbitflow/internal/workflow"
)

// shutdownTimeout bounds how long Shutdown waits for in-flight requests to
// drain before giving up, matching the teacher's server shutdown budget.
const shutdownTimeout = 10 * time.Second

// Server is the orbitflowd HTTP API: Gin engine, the services it fronts,
// and the http.Server wrapping it for graceful shutdown.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger

	pool         *database.Pool
	flows        *database.FlowStore
	triggers     *database.TriggerStore
	agentRuns    *database.AgentRunStore
	helper       *workflow.Helper
	executor     *agent.Executor
	connManager  *events.ConnectionManager
	cronSched    *cron.Scheduler
	webhooks     *webhook.Handler
	pushManagers map[string]*push.Manager
	scheduler    *scheduler.Scheduler

	allowedWSOrigins []string
}

// Deps bundles every service the API surface fronts. Each service field is
// required except PushManagers, which may be empty if no push-trigger
// providers are configured; AgentRuns (nil skips agent-run auditing),
// Scheduler (nil makes poll-trigger disarm answer 501), AllowedWSOrigins
// and Logger (nil falls back to slog.Default) are optional too.
type Deps struct {
	Pool             *database.Pool
	Flows            *database.FlowStore
	Triggers         *database.TriggerStore
	AgentRuns        *database.AgentRunStore
	Helper           *workflow.Helper
	Executor         *agent.Executor
	ConnManager      *events.ConnectionManager
	CronScheduler    *cron.Scheduler
	Webhooks         *webhook.Handler
	PushManagers     map[string]*push.Manager
	Scheduler        *scheduler.Scheduler
	AllowedWSOrigins []string
	Logger           *slog.Logger
}

// NewServer builds the Gin engine, installs middleware, and registers every
// route. Call Start to begin serving.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:           engine,
		logger:           logger,
		pool:             deps.Pool,
		flows:            deps.Flows,
		triggers:         deps.Triggers,
		agentRuns:        deps.AgentRuns,
		helper:           deps.Helper,
		executor:         deps.Executor,
		connManager:      deps.ConnManager,
		cronSched:        deps.CronScheduler,
		webhooks:         deps.Webhooks,
		pushManagers:     deps.PushManagers,
		scheduler:        deps.Scheduler,
		allowedWSOrigins: deps.AllowedWSOrigins,
	}
	if s.pushManagers == nil {
		s.pushManagers = map[string]*push.Manager{}
	}

	engine.Use(requestIDMiddleware(), structuredLogMiddleware(logger), gin.Recovery())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Engine exposes the underlying Gin engine for tests that want to drive
// requests through httptest without starting a listener.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving on the configured address. It blocks until the
// server stops; http.ErrServerClosed is swallowed since it's the expected
// outcome of a graceful Shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/ws", s.websocketHandler)

	s.webhooks.Mount(s.engine.Group("/api"))

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/flows/:flow_id/run", s.runFlowHandler)
		v1.GET("/flows/:flow_id", s.getFlowHandler)
		v1.PUT("/flows/:flow_id", s.saveFlowHandler)

		v1.POST("/agents/:agent_id/run", s.runAgentHandler)

		v1.POST("/triggers/cron", s.armCronHandler)
		v1.POST("/triggers/webhooks", s.armWebhookHandler)
		v1.DELETE("/triggers/:trigger_id", s.disarmTriggerHandler)

		v1.Any("/push/:provider/:channel_id", s.pushReceiveHandler)
	}
}

func wsAcceptOptions(allowed []string) *websocket.AcceptOptions {
	if len(allowed) == 0 {
		return &websocket.AcceptOptions{}
	}
	return &websocket.AcceptOptions{OriginPatterns: allowed}
}
