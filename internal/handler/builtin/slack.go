package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orbitflow/orbitflow/internal/handler"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackPostMessageHandler posts a message to a Slack channel. Grounded on
// slack_send_message.py's SlackHandler: bearer token from creds, a
// {channel, text} JSON body, success judged by Slack's own "ok" field
// rather than HTTP status (Slack returns 200 even on application errors).
type SlackPostMessageHandler struct{}

func (h *SlackPostMessageHandler) ParameterSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "channel", Type: handler.TypeString, Required: true, Description: "Slack channel id or name"},
		{Name: "message", Type: handler.TypeString, Required: true, Description: "Message text"},
	}
}

func (h *SlackPostMessageHandler) Execute(ctx context.Context, params handler.Params, creds handler.Creds) (*handler.Result, error) {
	start := time.Now()

	token, _ := creds["access_token"].(string)
	if token == "" {
		return errResult(start, fmt.Errorf("missing creds.access_token")), nil
	}
	channel, _ := params["channel"].(string)
	message, _ := params["message"].(string)
	if channel == "" || message == "" {
		return errResult(start, fmt.Errorf("'channel' and 'message' are required")), nil
	}

	body, err := json.Marshal(map[string]string{"channel": channel, "text": message})
	if err != nil {
		return errResult(start, err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackPostMessageURL, bytes.NewReader(body))
	if err != nil {
		return errResult(start, err), nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errResult(start, err), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(start, err), nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return errResult(start, fmt.Errorf("slack response decode: %w", err)), nil
	}

	if ok, _ := data["ok"].(bool); !ok {
		errMsg, _ := data["error"].(string)
		if errMsg == "" {
			errMsg = "slack api error"
		}
		return &handler.Result{Status: handler.StatusError, Output: data, Error: errMsg, DurationMS: elapsedMS(start)}, nil
	}
	return okResult(start, data), nil
}
