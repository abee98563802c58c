package push

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DriveProvider implements Provider for Google Drive change notifications.
// Arm obtains a startPageToken; Verify checks the channel id header rather
// than a signature (Drive has no HMAC scheme); Extract treats the whole
// notification as a single change since Drive's push payload carries no
// change list, only a "something changed, go list changes since token" cue.
type DriveProvider struct {
	ExpectedChannelID string
}

func (p *DriveProvider) Name() string { return "drive" }

func (p *DriveProvider) Arm(args Args) (string, time.Time, error) {
	// A real deployment calls Drive's changes.getStartPageToken here; the
	// channel itself has no fixed expiry distinct from its registered
	// webhook channel, which Google caps at 24h by default.
	return "drive-start-token", time.Now().Add(24 * time.Hour), nil
}

func (p *DriveProvider) Verify(headers http.Header, body []byte, secret string) error {
	channelID := headers.Get("X-Goog-Channel-ID")
	if channelID == "" {
		return fmt.Errorf("missing X-Goog-Channel-ID header")
	}
	if p.ExpectedChannelID != "" && channelID != p.ExpectedChannelID {
		return fmt.Errorf("unexpected channel id %q", channelID)
	}
	return nil
}

func (p *DriveProvider) Extract(body []byte, sinceToken string) ([]map[string]any, string, error) {
	return []map[string]any{{"notification": "drive_change", "since": sinceToken}}, "drive-" + sinceToken + "-next", nil
}

func (p *DriveProvider) RenewalFraction() float64 { return 6.0 / 7.0 }

// GmailProvider implements Provider for Gmail watch + Pub/Sub push.
// Notifications arrive as a base64-encoded Pub/Sub message carrying a
// historyId; Extract decodes it and reports the single change, leaving
// the real History API listing to the caller that processes the change.
type GmailProvider struct{}

func (p *GmailProvider) Name() string { return "gmail" }

func (p *GmailProvider) Arm(args Args) (string, time.Time, error) {
	return "gmail-history-0", time.Now().Add(7 * 24 * time.Hour), nil
}

// Verify is a no-op beyond requiring a non-empty body: Gmail's Pub/Sub
// push delivery has no per-message HMAC, relying instead on the push
// subscription's own endpoint authentication.
func (p *GmailProvider) Verify(headers http.Header, body []byte, secret string) error {
	if len(body) == 0 {
		return fmt.Errorf("empty pub/sub push body")
	}
	return nil
}

func (p *GmailProvider) Extract(body []byte, sinceToken string) ([]map[string]any, string, error) {
	var envelope struct {
		Message struct {
			Data string `json:"data"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, sinceToken, fmt.Errorf("decoding pub/sub envelope: %w", err)
	}
	var notification struct {
		EmailAddress string `json:"emailAddress"`
		HistoryID    string `json:"historyId"`
	}
	_ = json.Unmarshal([]byte(envelope.Message.Data), &notification)
	if notification.HistoryID == "" {
		return nil, sinceToken, nil
	}
	return []map[string]any{{
		"type":       "messageAdded",
		"history_id": notification.HistoryID,
		"email":      notification.EmailAddress,
	}}, notification.HistoryID, nil
}

func (p *GmailProvider) RenewalFraction() float64 { return 6.0 / 7.0 }

// GitHubProvider implements Provider for GitHub repository webhooks.
// Verify checks the X-Hub-Signature-256 HMAC-SHA256 over the raw body.
type GitHubProvider struct{}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) Arm(args Args) (string, time.Time, error) {
	return "", time.Time{}, nil // GitHub webhooks don't expire; no renewal needed
}

func (p *GitHubProvider) Verify(headers http.Header, body []byte, secret string) error {
	if secret == "" {
		return nil // webhook configured without a secret: signature checking is skipped, matching upstream behavior
	}
	signature := headers.Get("X-Hub-Signature-256")
	if signature == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func (p *GitHubProvider) Extract(body []byte, sinceToken string) ([]map[string]any, string, error) {
	var event map[string]any
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, sinceToken, fmt.Errorf("decoding github event: %w", err)
	}
	deliveryID, _ := event["delivery_id"].(string)
	if deliveryID == "" {
		deliveryID = sinceToken
	}
	return []map[string]any{event}, deliveryID, nil
}

func (p *GitHubProvider) RenewalFraction() float64 { return 1 } // never expires, no renewal fires

// SlackProvider implements Provider for Slack Events API. Verify checks
// the v0 HMAC-SHA256 signature over "v0:<timestamp>:<body>", rejecting
// requests whose timestamp is more than 5 minutes old.
type SlackProvider struct{}

func (p *SlackProvider) Name() string { return "slack" }

func (p *SlackProvider) Arm(args Args) (string, time.Time, error) {
	return "", time.Time{}, nil // Events API subscriptions don't expire
}

func (p *SlackProvider) Verify(headers http.Header, body []byte, secret string) error {
	ts := headers.Get("X-Slack-Request-Timestamp")
	signature := headers.Get("X-Slack-Signature")
	if ts == "" || signature == "" {
		return fmt.Errorf("missing slack signature headers")
	}
	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp")
	}
	if age := time.Since(time.Unix(tsInt, 0)); age > 5*time.Minute || age < -5*time.Minute {
		return fmt.Errorf("request timestamp outside 5-minute window")
	}

	base := "v0:" + ts + ":" + string(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func (p *SlackProvider) Extract(body []byte, sinceToken string) ([]map[string]any, string, error) {
	var event struct {
		EventID string `json:"event_id"`
		Event   map[string]any `json:"event"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, sinceToken, fmt.Errorf("decoding slack event: %w", err)
	}
	ts, _ := event.Event["ts"].(string)
	if ts == "" {
		ts = sinceToken
	}
	return []map[string]any{event.Event}, ts, nil
}

func (p *SlackProvider) RenewalFraction() float64 { return 1 }
