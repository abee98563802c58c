package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/agent"
	"github.com/orbitflow/orbitflow/internal/handler"
)

// runAgentRequest is the POST /agents/:agent_id/run body.
type runAgentRequest struct {
	UserPrompt    string        `json:"user_prompt" binding:"required"`
	Creds         handler.Creds `json:"creds"`
	Temperature   *float64      `json:"temperature"`
	MaxIterations *int          `json:"max_iterations"`
}

func (s *Server) runAgentHandler(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req runAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.executor.Run(c.Request.Context(), agentID, req.UserPrompt, req.Creds, req.Temperature, req.MaxIterations)

	if s.agentRuns != nil {
		executionID := uuid.New()
		if err := s.agentRuns.Record(c.Request.Context(), agentID, executionID, req.UserPrompt, result); err != nil {
			s.logger.Error("failed to record agent run", "agent_id", agentID, "error", err)
		}
	}

	status := http.StatusOK
	if result.Status == agent.StatusError {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}
