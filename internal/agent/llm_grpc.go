package agent

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// chatMethod is the fully-qualified gRPC method the sidecar LLM-provider
// process exposes. Requests and responses travel as structpb.Struct —
// protobuf's built-in dynamic JSON-shaped message type — rather than a
// hand-generated .pb.go service, since this exercise cannot invoke protoc.
// structpb.Struct is itself a real compiled proto.Message shipped by
// google.golang.org/protobuf, so the wire format is genuine protobuf, not a
// JSON-over-gRPC shim.
const chatMethod = "/orbitflow.llm.LLMService/Chat"

// GRPCLLMClient calls a sidecar LLM-provider process over gRPC, the same
// shape as codeready-toolchain-tarsy's GRPCLLMClient (llm_grpc.go):
// plaintext localhost/sidecar transport, one RPC per chat call.
type GRPCLLMClient struct {
	conn *grpc.ClientConn
}

// NewGRPCLLMClient dials the sidecar at addr. Uses insecure (plaintext)
// transport — the sidecar is expected to run on localhost or as a
// same-pod sidecar; upgrade to TLS credentials before crossing a network
// boundary.
func NewGRPCLLMClient(addr string) (*GRPCLLMClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing LLM sidecar at %s: %w", addr, err)
	}
	return &GRPCLLMClient{conn: conn}, nil
}

// Chat marshals req into a structpb.Struct, invokes the sidecar's Chat
// method, and unmarshals the response back into a ChatResponse.
func (c *GRPCLLMClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	reqStruct, err := structpb.NewStruct(requestToMap(req))
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	respStruct := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, chatMethod, reqStruct, respStruct); err != nil {
		return nil, fmt.Errorf("chat RPC failed: %w", err)
	}

	return responseFromMap(respStruct.AsMap()), nil
}

// Close releases the gRPC connection.
func (c *GRPCLLMClient) Close() error {
	return c.conn.Close()
}

func requestToMap(req ChatRequest) map[string]any {
	messages := make([]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]any{
			"role":         m.Role,
			"content":      m.Content,
			"tool_call_id": m.ToolCallID,
		})
	}
	tools := make([]any, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"params_json": t.ParamsJSON,
		})
	}
	return map[string]any{
		"messages":    messages,
		"temperature": req.Temperature,
		"tools":       tools,
	}
}

func responseFromMap(m map[string]any) *ChatResponse {
	resp := &ChatResponse{}
	if content, ok := m["content"].(string); ok {
		resp.Content = content
	}
	if steps, ok := m["tool_steps"].([]any); ok {
		for _, s := range steps {
			sm, ok := s.(map[string]any)
			if !ok {
				continue
			}
			step := ToolStep{}
			if v, ok := sm["call_id"].(string); ok {
				step.CallID = v
			}
			if v, ok := sm["tool"].(string); ok {
				step.Tool = v
			}
			if v, ok := sm["params"].(map[string]any); ok {
				step.Params = v
			}
			resp.ToolSteps = append(resp.ToolSteps, step)
		}
	}
	if usage, ok := m["usage"].(map[string]any); ok {
		if v, ok := usage["input_tokens"].(float64); ok {
			resp.Usage.InputTokens = int(v)
		}
		if v, ok := usage["output_tokens"].(float64); ok {
			resp.Usage.OutputTokens = int(v)
		}
	}
	return resp
}
