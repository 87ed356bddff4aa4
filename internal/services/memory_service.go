package services

import (
	"log"
	"strings"
	"sync"
)

// topicRetentionShare is the minimum share of all recorded mentions a topic
// needs to stay in the active set. The running total is never reset, so
// topics that stop appearing lose share and eventually fall out — a lossy,
// recency-weighted notion of relevance.
const topicRetentionShare = 0.10

const (
	promptTopicLimit      = 8
	promptBackgroundLimit = 3
)

// MemoryService accumulates topic mentions and background facts across
// pipeline runs. One instance lives for the process lifetime and is shared by
// concurrent runs, so every operation holds the internal mutex.
type MemoryService struct {
	mu           sync.Mutex
	background   []string // insertion order, deduped by exact string, unbounded
	activeTopics []string // active set in activation order
	topicCounts  map[string]int
	topicTotal   int
}

// MemorySnapshot is a point-in-time copy of the store's contents.
type MemorySnapshot struct {
	Background    []string       `json:"background_knowledge"`
	ActiveTopics  []string       `json:"related_topics"`
	TopicCounts   map[string]int `json:"topic_counts"`
	TotalMentions int            `json:"topic_total_count"`
}

// NewMemoryService creates an empty memory store.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		topicCounts: make(map[string]int),
	}
}

// Update records one review's topics and background fact, then re-evaluates
// every active topic's share of all mentions ever recorded and evicts those
// below the retention threshold. Counts survive eviction: a topic that
// reappears resumes from its accumulated count.
func (m *MemoryService) Update(topics []string, background string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bg := strings.TrimSpace(background); bg != "" && !containsString(m.background, bg) {
		m.background = append(m.background, bg)
	}

	for _, t := range topics {
		topic := strings.TrimSpace(t)
		if topic == "" {
			continue
		}
		if !containsString(m.activeTopics, topic) {
			m.activeTopics = append(m.activeTopics, topic)
		}
		m.topicCounts[topic]++
		m.topicTotal++
	}

	if m.topicTotal == 0 || len(m.activeTopics) == 0 {
		return
	}

	retained := m.activeTopics[:0]
	evicted := 0
	for _, topic := range m.activeTopics {
		share := float64(m.topicCounts[topic]) / float64(m.topicTotal)
		if share >= topicRetentionShare {
			retained = append(retained, topic)
		} else {
			evicted++
		}
	}
	m.activeTopics = retained
	if evicted > 0 {
		log.Printf("🧠 [MEMORY] Evicted %d low-frequency topic(s), %d active (total mentions: %d)",
			evicted, len(m.activeTopics), m.topicTotal)
	}
}

// Snapshot returns a copy of the store's contents.
func (m *MemoryService) Snapshot() MemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int, len(m.topicCounts))
	for k, v := range m.topicCounts {
		counts[k] = v
	}
	return MemorySnapshot{
		Background:    append([]string(nil), m.background...),
		ActiveTopics:  append([]string(nil), m.activeTopics...),
		TopicCounts:   counts,
		TotalMentions: m.topicTotal,
	}
}

// PromptBlock renders the memory hint appended to review and single-stage
// system prompts: the most recently activated topics and the latest
// background facts. Returns "" when the store is empty.
func (m *MemoryService) PromptBlock() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := lastN(m.activeTopics, promptTopicLimit)
	background := lastN(m.background, promptBackgroundLimit)
	if len(topics) == 0 && len(background) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nKnown memory to refine (topics/background):\n")
	if len(topics) > 0 {
		b.WriteString("topics: " + strings.Join(topics, ", ") + "\n")
	}
	if len(background) > 0 {
		b.WriteString("background: " + strings.Join(background, " | "))
	}
	return b.String()
}

// BackgroundBlock renders the background-knowledge hint for the answer
// prompt. When the store holds no facts yet, the current review's own
// background text is used instead.
func (m *MemoryService) BackgroundBlock(fallback string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := lastN(m.background, promptBackgroundLimit)
	body := fallback
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	return "\n\nBackground knowledge (for reference only):\n" + body
}

// Sizes reports active topic count, background fact count and total mentions.
func (m *MemoryService) Sizes() (topics, background, mentions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activeTopics), len(m.background), m.topicTotal
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func lastN(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}
