package builtin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orbitflow/orbitflow/internal/handler"
)

// HTTPRequestHandler is a universal outbound HTTP node/tool. Grounded on
// http_request_handler.py's HttpRequestHandler: method/url required,
// optional headers/query/body/bodyType, three auth schemes, exponential
// back-off retry on 5xx and transport errors.
type HTTPRequestHandler struct{}

func (h *HTTPRequestHandler) ParameterSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "method", Type: handler.TypeString, Required: true, Description: "HTTP verb (GET, POST, ...)"},
		{Name: "url", Type: handler.TypeString, Required: true, Description: "Full request URL"},
		{Name: "headers", Type: handler.TypeMapping, Description: "Additional request headers"},
		{Name: "queryParams", Type: handler.TypeMapping, Description: "Query string parameters"},
		{Name: "body", Type: handler.TypeAny, Description: "Request body"},
		{Name: "bodyType", Type: handler.TypeString, Default: "json", Description: "raw | json | form"},
		{Name: "auth", Type: handler.TypeMapping, Description: `{"type": "bearer|basic|apiKey", ...}`},
		{Name: "retries", Type: handler.TypeInteger, Default: 2, Description: "Retries on 5xx/transport error"},
	}
}

func (h *HTTPRequestHandler) Execute(ctx context.Context, params handler.Params, creds handler.Creds) (*handler.Result, error) {
	start := time.Now()

	method, _ := params["method"].(string)
	rawURL, _ := params["url"].(string)
	if method == "" || rawURL == "" {
		return errResult(start, fmt.Errorf("'method' and 'url' are required")), nil
	}
	method = strings.ToUpper(method)

	headers, _ := params["headers"].(map[string]any)
	if headers == nil {
		headers = map[string]any{}
	}
	query, _ := params["queryParams"].(map[string]any)
	body := params["body"]
	bodyType, _ := params["bodyType"].(string)
	if bodyType == "" {
		bodyType = "json"
	}

	if authCfg, ok := params["auth"].(map[string]any); ok {
		applyAuth(headers, authCfg)
	}

	reqURL, err := withQuery(rawURL, query)
	if err != nil {
		return errResult(start, err), nil
	}

	retries := 2
	if r, ok := params["retries"].(int); ok {
		retries = r
	}

	delay := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		result, status, retryable, err := h.attempt(ctx, method, reqURL, headers, body, bodyType)
		if err == nil {
			return okResult(start, map[string]any{"status_code": status, "body": result}), nil
		}
		lastErr = err
		if !retryable || attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return errResult(start, ctx.Err()), nil
		case <-time.After(delay):
		}
		delay *= 2
	}
	return errResult(start, lastErr), nil
}

func (h *HTTPRequestHandler) attempt(ctx context.Context, method, reqURL string, headers map[string]any, body any, bodyType string) (any, int, bool, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		switch bodyType {
		case "raw", "form":
			s, _ := body.(string)
			reader = strings.NewReader(s)
			if bodyType == "form" {
				contentType = "application/x-www-form-urlencoded"
			}
		default:
			buf, err := json.Marshal(body)
			if err != nil {
				return nil, 0, false, err
			}
			reader = bytes.NewReader(buf)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, false, err
	}
	for k, v := range headers {
		req.Header.Set(k, fmt.Sprintf("%v", v))
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, true, err
	}

	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode >= 500
		return nil, resp.StatusCode, retryable, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		parsed = string(raw)
	}
	return parsed, resp.StatusCode, false, nil
}

func applyAuth(headers map[string]any, auth map[string]any) {
	atype, _ := auth["type"].(string)
	switch atype {
	case "bearer":
		if token, ok := auth["token"].(string); ok && token != "" {
			setIfAbsent(headers, "Authorization", "Bearer "+token)
		}
	case "basic":
		if username, ok := auth["username"].(string); ok {
			password, _ := auth["password"].(string)
			creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
			setIfAbsent(headers, "Authorization", "Basic "+creds)
		}
	case "apiKey":
		if key, ok := auth["key"].(string); ok && key != "" {
			name, _ := auth["header"].(string)
			if name == "" {
				name = "X-API-KEY"
			}
			setIfAbsent(headers, name, key)
		}
	}
}

func setIfAbsent(headers map[string]any, key, value string) {
	for k := range headers {
		if strings.EqualFold(k, key) {
			return
		}
	}
	headers[key] = value
}

func withQuery(rawURL string, query map[string]any) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
