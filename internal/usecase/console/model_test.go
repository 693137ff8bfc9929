package console

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"agentdrop/internal/usecase/pipeline"
)

func TestNextTierFilterCyclesThroughAll(t *testing.T) {
	testCases := []struct {
		current string
		want    string
	}{
		{"", "A"},
		{"A", "B"},
		{"B", "C"},
		{"C", "D"},
		{"D", ""},
		{"unknown", ""},
	}

	for _, testCase := range testCases {
		got := nextTierFilter(testCase.current)
		if got != testCase.want {
			t.Fatalf("nextTierFilter(%q) = %q, want %q", testCase.current, got, testCase.want)
		}
	}
}

func TestUpdateNavigationBounds(t *testing.T) {
	m := &model{
		ctx: context.Background(),
		prospects: []pipeline.ProspectListItem{
			{Username: "first"},
			{Username: "second"},
		},
	}

	if _, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp}); m.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d after up at top, want 0", m.selectedIndex)
	}

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d after down, want 1", m.selectedIndex)
	}

	if _, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown}); m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d after down at bottom, want 1", m.selectedIndex)
	}
}

func TestUpdateProspectsLoadedClampsSelection(t *testing.T) {
	m := &model{ctx: context.Background(), selectedIndex: 5}

	_, _ = m.Update(prospectsLoadedMsg{items: []pipeline.ProspectListItem{{Username: "only"}}})
	if m.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d after shrink, want 0", m.selectedIndex)
	}

	_, _ = m.Update(prospectsLoadedMsg{items: nil})
	if m.hasDetail {
		t.Fatal("detail kept after empty reload")
	}
}

func TestUpdateStaleDetailIsDropped(t *testing.T) {
	m := &model{
		ctx: context.Background(),
		prospects: []pipeline.ProspectListItem{
			{Username: "current"},
		},
	}

	_, _ = m.Update(detailLoadedMsg{username: "stale", detail: pipeline.ProspectDetail{}})
	if m.hasDetail {
		t.Fatal("stale detail accepted")
	}

	_, _ = m.Update(detailLoadedMsg{username: "Current", detail: pipeline.ProspectDetail{}})
	if !m.hasDetail {
		t.Fatal("matching detail rejected")
	}
}

func TestViewRendersWithoutData(t *testing.T) {
	m := &model{ctx: context.Background(), status: "loading"}

	view := m.View()
	if !strings.Contains(view, "Agentdrop Console") {
		t.Fatalf("view missing title: %q", view)
	}
	if !strings.Contains(view, "no prospects") {
		t.Fatalf("view missing empty state: %q", view)
	}
}

func TestTierBadgeAndScoreDisplay(t *testing.T) {
	if got := tierBadge(nil); got != "[?]" {
		t.Fatalf("tierBadge(nil) = %q", got)
	}
	tier := "A"
	if got := tierBadge(&tier); got != "[A]" {
		t.Fatalf("tierBadge(A) = %q", got)
	}
	if got := displayScore(nil); got != "-" {
		t.Fatalf("displayScore(nil) = %q", got)
	}
}
