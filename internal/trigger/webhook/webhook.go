// Package webhook implements the webhook trigger type: a Gin route group
// serving one path per registered webhook, auth verification (none /
// bearer / HMAC), event persistence ahead of flow invocation, and
// immediate/delayed response modes. Grounded on
// original_source/app/handlers/webhook_trigger_handler.go for the
// schedule()/unregister() contract and codeready-toolchain-tarsy's
// pkg/api/server.go route-group style, adapted from Echo to Gin to match
// the teacher's cmd/tarsy/main.go router.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
)

// AuthType names the supported per-webhook verification schemes.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthHMAC   AuthType = "hmac"
)

// RespondMode controls whether the HTTP response returns immediately or
// waits for the flow to finish.
type RespondMode string

const (
	RespondImmediate RespondMode = "immediate"
	RespondDelayed   RespondMode = "delayed"
)

// timestampWindow is how far a signed request's timestamp may drift from
// wall clock before an HMAC-authenticated request is rejected.
const timestampWindow = 5 * time.Minute

// Args is the schedule() payload for a webhook trigger.
type Args struct {
	FlowID         uuid.UUID
	UserID         string
	Methods        []string
	RespondMode    RespondMode
	AuthType       AuthType
	Secret         string // bearer token or HMAC signing key, depending on AuthType
	AllowedOrigins []string
}

// Registered is what schedule() returns to the caller.
type Registered struct {
	ProductionPath string
	TestPath       string
	Token          string
}

// entry is the table row held per registered webhook path.
type entry struct {
	args Args
	reg  *trigger.Registration
}

// Handler owns the webhook path table and the Gin routes that serve it.
// One Handler instance is mounted once at startup; webhook paths are added
// to its token table dynamically as flows register webhooks, keyed by the
// random token embedded in each path.
type Handler struct {
	logger *slog.Logger
	store  trigger.Store
	sink   trigger.Sink
	synch  Synchronous // runs a flow to completion for RespondDelayed

	mu      sync.RWMutex
	byToken map[string]*entry
}

// Synchronous runs a flow to completion and returns its result, used for
// RespondDelayed webhooks that must return the flow's outcome.
type Synchronous interface {
	RunSync(event trigger.Event) (map[string]any, error)
}

// New creates a webhook Handler. Register routes with Mount.
func New(store trigger.Store, sink trigger.Sink, synch Synchronous, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		store:   store,
		sink:    sink,
		synch:   synch,
		byToken: make(map[string]*entry),
	}
}

// Mount installs the two catch-all webhook routes on the given router
// group. Routing within the group is by token, looked up from byToken at
// request time, so no per-webhook route registration is needed.
func (h *Handler) Mount(r gin.IRouter) {
	r.Any("/webhooks/:token", h.serve(false))
	r.Any("/webhooks-test/:token", h.serve(true))
}

// Arm registers a new webhook path and persists its Registration.
func (h *Handler) Arm(args Args) (*Registered, error) {
	if len(args.Methods) == 0 {
		args.Methods = []string{http.MethodPost}
	}
	if args.RespondMode == "" {
		args.RespondMode = RespondImmediate
	}

	token := uuid.New().String()
	reg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      args.FlowID,
		UserID:      args.UserID,
		TriggerType: trigger.TypeWebhook,
		State:       trigger.StateArmed,
		Args: map[string]any{
			"methods":         args.Methods,
			"respond_mode":    string(args.RespondMode),
			"auth_type":       string(args.AuthType),
			"allowed_origins": args.AllowedOrigins,
		},
		Detail: map[string]any{"token": token},
	}
	if err := h.store.Save(reg); err != nil {
		return nil, fmt.Errorf("persisting webhook registration for flow %s: %w", args.FlowID, err)
	}

	h.mu.Lock()
	h.byToken[token] = &entry{args: args, reg: reg}
	h.mu.Unlock()

	return &Registered{
		ProductionPath: "/api/webhooks/" + token,
		TestPath:       "/api/webhooks-test/" + token,
		Token:          token,
	}, nil
}

// Disarm removes a webhook path from the table and marks it disarmed.
func (h *Handler) Disarm(reg *trigger.Registration) error {
	h.mu.Lock()
	for token, e := range h.byToken {
		if e.reg.TriggerID == reg.TriggerID {
			delete(h.byToken, token)
			break
		}
	}
	h.mu.Unlock()

	reg.State = trigger.StateDisarmed
	return h.store.Save(reg)
}

func (h *Handler) serve(testPath bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		h.mu.RLock()
		e, ok := h.byToken[token]
		h.mu.RUnlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown webhook token"})
			return
		}
		if !e.reg.State.CanAccept() {
			c.JSON(http.StatusGone, gin.H{"error": "webhook disarmed"})
			return
		}
		if !methodAllowed(c.Request.Method, e.args.Methods) {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
			return
		}

		if err := h.authenticate(c, e.args, body); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		headers := map[string]string{}
		for k := range c.Request.Header {
			headers[k] = c.Request.Header.Get(k)
		}

		var payload map[string]any
		if len(body) > 0 {
			_ = json.Unmarshal(body, &payload) // non-JSON bodies are carried as an empty payload map
		}

		event := trigger.Event{
			TriggerType:   trigger.TypeWebhook,
			FlowID:        e.args.FlowID,
			UserID:        e.args.UserID,
			Payload:       payload,
			SourceHeaders: headers,
		}

		if testPath {
			c.JSON(http.StatusOK, gin.H{"status": "received", "test": true, "payload": payload})
			return
		}

		switch e.args.RespondMode {
		case RespondDelayed:
			result, err := h.synch.RunSync(event)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, result)
		default:
			c.JSON(http.StatusOK, gin.H{"status": "accepted"})
			if err := h.sink.Fire(event); err != nil {
				h.logger.Error("webhook fire failed", "flow_id", e.args.FlowID, "error", err)
			}
		}
	}
}

func methodAllowed(method string, allowed []string) bool {
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// authenticate checks the configured AuthType. HMAC verification requires
// an "X-Webhook-Signature" header of the form "t=<unix-seconds>,v1=<hex-hmac>",
// the hex-hmac being HMAC-SHA256 over the literal concatenation of the
// timestamp and the raw body, rejecting any signature whose timestamp has
// drifted more than timestampWindow from wall clock; the comparison itself
// is constant-time.
func (h *Handler) authenticate(c *gin.Context, args Args, body []byte) error {
	switch args.AuthType {
	case "", AuthNone:
		return nil
	case AuthBearer:
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(args.Secret)) != 1 {
			return fmt.Errorf("invalid bearer token")
		}
		return nil
	case AuthHMAC:
		return verifyHMAC(c.GetHeader("X-Webhook-Signature"), args.Secret, body)
	default:
		return fmt.Errorf("unknown auth_type %q", args.AuthType)
	}
}

func verifyHMAC(header, secret string, body []byte) error {
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return fmt.Errorf("malformed signature header")
	}
	var ts, sig string
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("malformed signature header")
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp")
	}
	age := time.Since(time.Unix(tsInt, 0))
	if age < 0 {
		age = -age
	}
	if age > timestampWindow {
		return fmt.Errorf("signature timestamp outside window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
