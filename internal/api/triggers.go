package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/database"
	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
	"github.com/orbitflow/orbitflow/internal/trigger/webhook"
)

func (s *Server) armCronHandler(c *gin.Context) {
	var args cron.Args
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := s.cronSched.Arm(args)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (s *Server) armWebhookHandler(c *gin.Context) {
	var args webhook.Args
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registered, err := s.webhooks.Arm(args)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, registered)
}

// disarmTriggerHandler routes to the owning trigger type's Disarm method.
// Poll triggers route through internal/scheduler.Scheduler.DisarmPoll
// rather than poll.Loop directly: poll.Loop itself exposes no Disarm (see
// ArmPoll's doc comment), so the scheduler is the layer that actually
// tracks which loop belongs to which registration.
func (s *Server) disarmTriggerHandler(c *gin.Context) {
	triggerID, err := uuid.Parse(c.Param("trigger_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger_id"})
		return
	}

	reg, err := s.triggers.Get(triggerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trigger not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch reg.TriggerType {
	case trigger.TypeCron:
		err = s.cronSched.Disarm(reg)
	case trigger.TypeWebhook:
		err = s.webhooks.Disarm(reg)
	case trigger.TypePush:
		provider, _ := reg.Args["provider"].(string)
		mgr, ok := s.pushManagers[provider]
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("no push provider registered for %q", provider)})
			return
		}
		err = mgr.Disarm(reg)
	case trigger.TypePoll:
		if s.scheduler == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "poll trigger disarm unavailable: scheduler not configured"})
			return
		}
		err = s.scheduler.DisarmPoll(reg)
	default:
		c.JSON(http.StatusNotImplemented, gin.H{"error": fmt.Sprintf("disarm not supported via API for trigger type %q", reg.TriggerType)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// pushReceiveHandler routes an incoming provider notification to the
// registered push.Manager, looking up the Registration by channel id
// (the trigger id, per push.Manager.Arm's Detail["channel_id"]).
func (s *Server) pushReceiveHandler(c *gin.Context) {
	provider := c.Param("provider")
	mgr, ok := s.pushManagers[provider]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown push provider"})
		return
	}

	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
		return
	}

	reg, err := s.triggers.Get(channelID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	if err := mgr.Receive(reg, c.Request.Header, body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}
