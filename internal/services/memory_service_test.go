package services

import (
	"strings"
	"testing"
)

// TestMemoryUpdateRetentionBoundary tests the 10% share eviction threshold.
// A topic holding exactly one tenth of all mentions survives; once the total
// grows past that ratio it falls out on the next update.
func TestMemoryUpdateRetentionBoundary(t *testing.T) {
	m := NewMemoryService()

	// 10 topics with one mention each: every share is exactly 0.10
	m.Update([]string{"X", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"}, "")

	snap := m.Snapshot()
	if !containsString(snap.ActiveTopics, "X") {
		t.Fatal("X should be retained at exactly the retention share")
	}
	if snap.TotalMentions != 10 {
		t.Fatalf("total mentions = %d, want 10", snap.TotalMentions)
	}

	// One more mention pushes the total to 11; every share drops below 0.10
	m.Update([]string{"Y"}, "")

	snap = m.Snapshot()
	if containsString(snap.ActiveTopics, "X") {
		t.Error("X should be evicted once its share drops below the threshold")
	}
	if snap.TotalMentions != 11 {
		t.Errorf("total mentions = %d, want 11 (counts survive eviction)", snap.TotalMentions)
	}
	if snap.TopicCounts["X"] != 1 {
		t.Errorf("count for evicted topic = %d, want 1", snap.TopicCounts["X"])
	}
}

// TestMemoryUpdateFrequentTopicSurvives tests that high-frequency topics
// outlive one-off mentions
func TestMemoryUpdateFrequentTopicSurvives(t *testing.T) {
	m := NewMemoryService()

	for i := 0; i < 5; i++ {
		m.Update([]string{"calculus"}, "")
	}
	m.Update([]string{"trivia"}, "")

	snap := m.Snapshot()
	if !containsString(snap.ActiveTopics, "calculus") {
		t.Error("calculus (5/6 share) should stay active")
	}
	if !containsString(snap.ActiveTopics, "trivia") {
		t.Error("trivia (1/6 share) is still above the retention share")
	}

	// five more calculus mentions push trivia's share to 1/11
	for i := 0; i < 5; i++ {
		m.Update([]string{"calculus"}, "")
	}

	snap = m.Snapshot()
	if !containsString(snap.ActiveTopics, "calculus") {
		t.Error("calculus (10/11 share) should stay active")
	}
	if containsString(snap.ActiveTopics, "trivia") {
		t.Error("trivia (1/11 share) should be evicted")
	}
	if snap.TopicCounts["calculus"] != 10 {
		t.Errorf("calculus count = %d, want 10", snap.TopicCounts["calculus"])
	}
}

// TestMemoryUpdateDedup tests background dedup and repeated-topic counting
func TestMemoryUpdateDedup(t *testing.T) {
	m := NewMemoryService()

	m.Update([]string{"go"}, "facts about go")
	m.Update([]string{"go"}, "facts about go")

	snap := m.Snapshot()
	if len(snap.Background) != 1 {
		t.Errorf("background facts = %d, want 1 (exact duplicates dropped)", len(snap.Background))
	}
	if snap.TopicCounts["go"] != 2 {
		t.Errorf("go count = %d, want 2", snap.TopicCounts["go"])
	}
	if len(snap.ActiveTopics) != 1 {
		t.Errorf("active topics = %d, want 1", len(snap.ActiveTopics))
	}
}

// TestMemoryUpdateIgnoresBlanks tests whitespace-only inputs are no-ops
func TestMemoryUpdateIgnoresBlanks(t *testing.T) {
	m := NewMemoryService()
	m.Update([]string{"", "  "}, "   ")

	topics, background, mentions := m.Sizes()
	if topics != 0 || background != 0 || mentions != 0 {
		t.Errorf("Sizes() = (%d, %d, %d), want all zero", topics, background, mentions)
	}
}

// TestPromptBlock tests the memory hint rendering
func TestPromptBlock(t *testing.T) {
	m := NewMemoryService()
	if got := m.PromptBlock(); got != "" {
		t.Errorf("empty store should render empty block, got %q", got)
	}

	m.Update([]string{"algebra", "geometry"}, "user studies for finals")
	block := m.PromptBlock()
	if !strings.Contains(block, "algebra, geometry") {
		t.Errorf("block missing topics: %q", block)
	}
	if !strings.Contains(block, "user studies for finals") {
		t.Errorf("block missing background: %q", block)
	}
}

// TestPromptBlockLimits tests that only the most recent entries are rendered
func TestPromptBlockLimits(t *testing.T) {
	m := NewMemoryService()

	// each topic repeated to keep everything above the retention share
	topics := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	m.Update(topics, "")

	block := m.PromptBlock()
	if !strings.Contains(block, "b, c, d, e, f, g, h, i") {
		t.Errorf("block should hold the newest topics only: %q", block)
	}
	if strings.Contains(block, "a,") {
		t.Errorf("oldest topic should be cut at the prompt limit: %q", block)
	}
}

// TestBackgroundBlock tests fallback behavior for the answer prompt
func TestBackgroundBlock(t *testing.T) {
	m := NewMemoryService()

	block := m.BackgroundBlock("review-supplied fact")
	if !strings.Contains(block, "review-supplied fact") {
		t.Errorf("empty store should fall back to the review's own background: %q", block)
	}

	m.Update(nil, "stored fact")
	block = m.BackgroundBlock("review-supplied fact")
	if !strings.Contains(block, "stored fact") || strings.Contains(block, "review-supplied fact") {
		t.Errorf("stored facts should take precedence over the fallback: %q", block)
	}
}
