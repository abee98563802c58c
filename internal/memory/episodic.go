package memory

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// MaxEpisodesPerAgent caps episodic memory size; oldest/least-important
// episodes are dropped once exceeded, matching the handler's max_episodes.
const MaxEpisodesPerAgent = 1000

// emotionalWeights mirrors the handler's keyword-to-weight table for
// importance scoring.
var emotionalWeights = map[string]float64{
	"strong_positive": 0.3,
	"strong_negative": 0.3,
	"positive":        0.1,
	"negative":        0.1,
	"excited":         0.2,
	"angry":           0.2,
	"sad":             0.1,
	"neutral":         0.0,
}

var importantKeywords = []string{
	"important", "critical", "urgent", "remember", "key", "essential",
	"decision", "breakthrough", "achievement", "problem", "issue",
}

// Episode is one stored event with temporal decay and importance scoring.
type Episode struct {
	ID           string
	Content      string
	Timestamp    time.Time
	Importance   float64
	Emotion      string
	Tags         []string
	AccessCount  int
	LastAccessed time.Time
}

// Episodic is the append-only, decay-scored long-term memory store.
type Episodic struct {
	mu       sync.Mutex
	episodes map[string][]Episode
	seq      int
}

// NewEpisodic creates an empty Episodic store.
func NewEpisodic() *Episodic {
	return &Episodic{episodes: make(map[string][]Episode)}
}

// Store appends one episode, computing its base importance and tags, then
// enforces MaxEpisodesPerAgent by dropping the least important/oldest.
func (e *Episodic) Store(agentID, content, emotion string, markedImportant, containsPeople, workRelated bool) Episode {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	e.seq++
	episode := Episode{
		ID:           fmt.Sprintf("ep_%d_%d", now.UnixMilli(), e.seq),
		Content:      content,
		Timestamp:    now,
		Importance:   calculateImportance(content, emotion, markedImportant, containsPeople, workRelated),
		Emotion:      emotion,
		Tags:         extractTags(content, emotion, containsPeople, workRelated),
		AccessCount:  0,
		LastAccessed: now,
	}

	episodes := append(e.episodes[agentID], episode)
	if len(episodes) > MaxEpisodesPerAgent {
		episodes = trimLeastImportant(episodes, MaxEpisodesPerAgent)
	}
	e.episodes[agentID] = episodes
	return episode
}

// Persist satisfies internal/agent.LongTermStore: one completed agent run
// becomes one episode, its prompt and response joined as content.
func (e *Episodic) Persist(agentID string, item agent.LongTermItem) error {
	content := item.Prompt
	if item.Response != "" {
		content = content + "\n" + item.Response
	}
	e.Store(agentID, content, "neutral", false, false, false)
	return nil
}

// Retrieve returns episodes within timeWindowHours, optionally filtered by
// query (matched against content and tags), ranked by decayed importance,
// limited to topK, with access tracking updated for the returned set.
func (e *Episodic) Retrieve(agentID, query string, timeWindowHours int, topK int) []Episode {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	threshold := now.Add(-time.Duration(timeWindowHours) * time.Hour)

	var candidates []Episode
	for _, ep := range e.episodes[agentID] {
		if ep.Timestamp.Before(threshold) {
			continue
		}
		if query != "" && !matchesQuery(ep, query) {
			continue
		}
		candidates = append(candidates, ep)
	}

	sortByCurrentImportance(candidates, now)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	for i := range candidates {
		e.recordAccess(agentID, candidates[i].ID, now)
		candidates[i].AccessCount++
		candidates[i].LastAccessed = now
	}
	return candidates
}

// Search filters all episodes (regardless of age) by a current-importance
// threshold and a query match.
func (e *Episodic) Search(agentID, query string, importanceThreshold float64) []Episode {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var matches []Episode
	for _, ep := range e.episodes[agentID] {
		if applyDecay(ep, now) < importanceThreshold {
			continue
		}
		if query != "" && !matchesQuery(ep, query) {
			continue
		}
		matches = append(matches, ep)
	}
	sortByCurrentImportance(matches, now)
	return matches
}

// Consolidate removes episodes older than 24h whose decayed importance is
// at or below 0.3 and which haven't been accessed within the last 24h.
func (e *Episodic) Consolidate(agentID string) (removed, remaining int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	episodes := e.episodes[agentID]
	original := len(episodes)

	kept := episodes[:0]
	for _, ep := range episodes {
		age := now.Sub(ep.Timestamp)
		recentlyAccessed := now.Sub(ep.LastAccessed) < 24*time.Hour
		if applyDecay(ep, now) > 0.3 || recentlyAccessed || age < 24*time.Hour {
			kept = append(kept, ep)
		}
	}
	e.episodes[agentID] = kept
	return original - len(kept), len(kept)
}

func (e *Episodic) recordAccess(agentID, id string, now time.Time) {
	for i := range e.episodes[agentID] {
		if e.episodes[agentID][i].ID == id {
			e.episodes[agentID][i].AccessCount++
			e.episodes[agentID][i].LastAccessed = now
			return
		}
	}
}

// calculateImportance mirrors the handler's _calculate_importance: a base
// score adjusted by content length, emotional intensity, keyword presence,
// and explicit context flags, clamped to [0, 1].
func calculateImportance(content, emotion string, markedImportant, containsPeople, workRelated bool) float64 {
	importance := 0.5

	if len(content) > 100 {
		importance += 0.1
	}
	importance += emotionalWeights[emotion]

	lower := strings.ToLower(content)
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			importance += 0.15
			break
		}
	}

	if markedImportant {
		importance += 0.3
	}
	if containsPeople {
		importance += 0.1
	}
	if workRelated {
		importance += 0.1
	}

	return math.Max(0, math.Min(1, importance))
}

func extractTags(content, emotion string, containsPeople, workRelated bool) []string {
	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}

	if emotion != "" && emotion != "neutral" {
		add("emotion:" + emotion)
	}

	lower := strings.ToLower(content)
	topics := map[string][]string{
		"work":     {"work", "project", "meeting", "task", "deadline"},
		"personal": {"family", "friend", "personal", "home"},
		"learning": {"learn", "study", "course", "book", "tutorial"},
		"decision": {"decide", "choice", "option", "consider"},
		"problem":  {"problem", "issue", "bug", "error", "fix"},
	}
	for topic, keywords := range topics {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				add("topic:" + topic)
				break
			}
		}
	}

	if workRelated {
		add("context:work")
	}
	if containsPeople {
		add("context:social")
	}
	return tags
}

// applyDecay computes current_importance = importance * e^(-age_hours /
// (168 + 24*access_count)), boosted 20% (capped at 1.0) if accessed within
// the last hour.
func applyDecay(ep Episode, now time.Time) float64 {
	ageHours := now.Sub(ep.Timestamp).Hours()
	decayRate := 168.0 + float64(ep.AccessCount)*24.0
	current := ep.Importance * math.Exp(-ageHours/decayRate)

	if now.Sub(ep.LastAccessed) < time.Hour {
		current *= 1.2
	}
	return math.Min(1.0, current)
}

func matchesQuery(ep Episode, query string) bool {
	lower := strings.ToLower(query)
	if strings.Contains(strings.ToLower(ep.Content), lower) {
		return true
	}
	for _, tag := range ep.Tags {
		if strings.Contains(strings.ToLower(tag), lower) {
			return true
		}
	}
	return false
}

func sortByCurrentImportance(episodes []Episode, now time.Time) {
	// Insertion sort: episode counts per agent are bounded by
	// MaxEpisodesPerAgent and this runs per-request, not per-iteration.
	for i := 1; i < len(episodes); i++ {
		j := i
		for j > 0 && applyDecay(episodes[j-1], now) < applyDecay(episodes[j], now) {
			episodes[j-1], episodes[j] = episodes[j], episodes[j-1]
			j--
		}
	}
}

func trimLeastImportant(episodes []Episode, max int) []Episode {
	now := time.Now()
	sortByCurrentImportance(episodes, now)
	return episodes[:max]
}
