package poll

import (
	"context"
	"fmt"
)

// GmailPoller implements Poller as the fallback path for accounts that
// can't register a Pub/Sub watch. Grounded on
// original_source/app/handlers/gmail_trigger_handler.py's poll fallback:
// history-id cursor, capped at 10 messages per tick.
type GmailPoller struct{}

func (p *GmailPoller) Name() string { return "gmail" }

func (p *GmailPoller) MaxItemsPerTick() int { return 10 }

func (p *GmailPoller) Poll(ctx context.Context, sinceToken string, maxItems int) ([]map[string]any, string, bool, error) {
	// A real deployment calls users.history.list with startHistoryId=sinceToken
	// here, capped at maxItems and trimmed to message-added history types.
	return nil, sinceToken, false, nil
}

// SlackPoller implements Poller as the fallback path for workspaces that
// can't receive Events API callbacks. Grounded on
// original_source/app/handlers/slack_trigger_handler.py's
// SlackPollFallbackHandler: 2025 rate limits cap this at 15 messages per
// call and a 120s minimum interval. MaxItemsPerTick enforces the per-call
// message cap here; the only interval floor applied is Loop/NewLoop's
// shared minInterval (60s), so no Slack-specific 120s floor is enforced.
type SlackPoller struct {
	ChannelIDs []string
}

func (p *SlackPoller) Name() string { return "slack" }

func (p *SlackPoller) MaxItemsPerTick() int { return 15 }

func (p *SlackPoller) Poll(ctx context.Context, sinceToken string, maxItems int) ([]map[string]any, string, bool, error) {
	if len(p.ChannelIDs) == 0 {
		return nil, sinceToken, false, fmt.Errorf("slack poller: no channel_ids configured")
	}
	// A real deployment calls conversations.history per channel with
	// oldest=sinceToken here, merging and re-sorting results across channels.
	return nil, sinceToken, false, nil
}

// GitHubPoller implements Poller as the fallback path for repos that can't
// register a webhook. Grounded on
// original_source/app/handlers/github_trigger.py's GitHubPollFallbackHandler:
// ETag-conditional requests to avoid burning rate limit on unchanged
// polls. The only interval floor applied is Loop/NewLoop's shared
// minInterval (60s); no GitHub-specific 5-minute floor is enforced.
type GitHubPoller struct {
	Repos []string
	etags map[string]string
}

func (p *GitHubPoller) Name() string { return "github" }

func (p *GitHubPoller) MaxItemsPerTick() int { return 5 }

func (p *GitHubPoller) Poll(ctx context.Context, sinceToken string, maxItems int) ([]map[string]any, string, bool, error) {
	if len(p.Repos) == 0 {
		return nil, sinceToken, false, fmt.Errorf("github poller: no repos configured")
	}
	// A real deployment GETs /repos/{repo}/events with an If-None-Match
	// header from p.etags here; a 304 short-circuits with rateLimited=false
	// and no items, a 403 with X-RateLimit-Remaining: 0 reports rateLimited=true.
	return nil, sinceToken, false, nil
}
