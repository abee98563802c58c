package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/orbitflow/orbitflow/internal/agent"
	"github.com/orbitflow/orbitflow/internal/handler"
	"github.com/orbitflow/orbitflow/internal/registry"
)

// SubAgentHandler bridges one named agent into the dispatcher as an
// ordinary tool/node, so a flow step or a parent agent's tool call can
// invoke "Agent.<agent_id>" exactly like any connector handler. Grounded
// on kadirpekel-hector's pkg/tool/agenttool (agent-as-tool delegation,
// tool name == agent name) combined with pkg/tool/mcptoolset's schema
// conversion, generalized from hector's own in-process Agent interface to
// this repo's agent.Executor.Run. mark3labs/mcp-go's mcp.Tool/ToolOption
// builders back MCPToolDefinition so the same bridged sub-agent can be
// advertised to an MCP-facing tool roster without a second schema
// representation.
type SubAgentHandler struct {
	agentID  string
	executor *agent.Executor
}

// RegisterSubAgents registers one Agent.<agent_id> handler per id, so
// every configured agent can be dispatched as a tool/node by any other
// agent or flow step. Call once at startup after the agent configs are
// known.
func RegisterSubAgents(reg *registry.Registry, executor *agent.Executor, agentIDs []string) {
	for _, id := range agentIDs {
		agentID := id
		name := "Agent." + agentID
		register(reg, name, handler.Descriptor{
			Kind:      handler.KindBoth,
			UsageMode: "delegate",
		}, func() handler.Handler {
			return &SubAgentHandler{agentID: agentID, executor: executor}
		})
	}
}

func (h *SubAgentHandler) ParameterSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "request", Type: handler.TypeString, Required: true, Description: fmt.Sprintf("The task or request for the %s agent", h.agentID)},
	}
}

// MCPToolDefinition describes this bridged sub-agent as an MCP tool, for
// agents whose own roster is assembled from MCP tool listings rather than
// direct dispatcher registrations.
func (h *SubAgentHandler) MCPToolDefinition() mcp.Tool {
	return mcp.NewTool("Agent."+h.agentID,
		mcp.WithDescription(fmt.Sprintf("Delegate a task to the %s agent", h.agentID)),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The task or request for the "+h.agentID+" agent"),
		),
	)
}

func (h *SubAgentHandler) Execute(ctx context.Context, params handler.Params, creds handler.Creds) (*handler.Result, error) {
	start := time.Now()

	request, _ := params["request"].(string)
	if request == "" {
		return errResult(start, fmt.Errorf("'request' is required")), nil
	}

	result := h.executor.Run(ctx, h.agentID, request, creds, nil, nil)
	if result.Status == agent.StatusError {
		errMsg := ""
		if result.Err != nil {
			errMsg = result.Err.Error()
		}
		return &handler.Result{
			Status:     handler.StatusError,
			Error:      errMsg,
			DurationMS: elapsedMS(start),
			Metadata:   map[string]any{"agent_id": h.agentID, "iterations": result.Iterations},
		}, nil
	}

	return &handler.Result{
		Status:     handler.StatusSuccess,
		Output:     map[string]any{"result": result.Final, "agent_id": h.agentID},
		DurationMS: elapsedMS(start),
		Metadata:   map[string]any{"iterations": result.Iterations, "cost_usd": result.Cost},
	}, nil
}
