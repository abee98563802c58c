package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/database"
	"github.com/orbitflow/orbitflow/internal/handler"
	"github.com/orbitflow/orbitflow/internal/workflow"
)

// runFlowRequest is the POST /flows/:flow_id/run body.
type runFlowRequest struct {
	UserID          string         `json:"user_id" binding:"required"`
	TriggerData     map[string]any `json:"trigger_data"`
	Inputs          handler.Params `json:"inputs"`
	TriggerSource   string         `json:"trigger_source"`
	UpstreamEventID string         `json:"upstream_event_id"`
}

func (s *Server) runFlowHandler(c *gin.Context) {
	flowID, err := uuid.Parse(c.Param("flow_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flow_id"})
		return
	}

	var req runFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.helper.ExecuteCompleteWorkflow(c.Request.Context(), flowID, req.UserID, req.TriggerData, req.Inputs, req.TriggerSource, req.UpstreamEventID)

	status := http.StatusOK
	switch {
	case result.Status == workflow.StatusError && result.Reason == workflow.ReasonFlowNotFound:
		status = http.StatusNotFound
	case result.Status == workflow.StatusError && result.Reason == workflow.ReasonForbidden:
		status = http.StatusForbidden
	case result.Status == workflow.StatusError:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (s *Server) getFlowHandler(c *gin.Context) {
	flowID, err := uuid.Parse(c.Param("flow_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flow_id"})
		return
	}

	flow, err := s.flows.Load(flowID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "flow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) saveFlowHandler(c *gin.Context) {
	flowID, err := uuid.Parse(c.Param("flow_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flow_id"})
		return
	}

	var flow workflow.Flow
	if err := c.ShouldBindJSON(&flow); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flow.FlowID = flowID

	if err := s.flows.Save(&flow); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, flow)
}
