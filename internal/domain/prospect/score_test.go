package prospect

import (
	"testing"
	"time"
)

func TestQualifyMCPRepo(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repos := []MatchedRepo{{
		Name:        "my-mcp-server",
		FullName:    "dev/my-mcp-server",
		Stars:       120,
		Description: "uses @modelcontextprotocol",
		LastUpdated: now.Add(-5 * 24 * time.Hour),
	}}

	q := Qualify(repos, now)

	want := ScoreBreakdown{ClaudeMCP: 30, AIAgent: 0, Stars: 12, Activity: 15, Followers: 0, Crypto: 0}
	if q.Breakdown != want {
		t.Fatalf("Qualify() breakdown = %+v, want %+v", q.Breakdown, want)
	}
	if q.Score != 57 {
		t.Fatalf("Qualify() score = %d, want 57", q.Score)
	}
	if q.Tier != TierB {
		t.Fatalf("Qualify() tier = %s, want B", q.Tier)
	}
}

func TestQualifyNoEvidence(t *testing.T) {
	q := Qualify(nil, time.Now())

	if q.Score != 0 {
		t.Fatalf("Qualify() score = %d, want 0", q.Score)
	}
	if q.Tier != TierD {
		t.Fatalf("Qualify() tier = %s, want D", q.Tier)
	}
	if q.Breakdown != (ScoreBreakdown{}) {
		t.Fatalf("Qualify() breakdown = %+v, want zero", q.Breakdown)
	}
}

func TestQualifyScoreIsSumOfBreakdown(t *testing.T) {
	now := time.Now().UTC()
	repos := []MatchedRepo{
		{Name: "langchain-agents", Description: "langchain bitcoin agent", Stars: 500, LastUpdated: now.Add(-10 * 24 * time.Hour), MatchedQuery: "claude agent"},
		{Name: "side-project", Stars: 40, LastUpdated: now.Add(-400 * 24 * time.Hour)},
	}

	q := Qualify(repos, now)
	if q.Score != q.Breakdown.Total() {
		t.Fatalf("score %d != breakdown total %d", q.Score, q.Breakdown.Total())
	}
	if q.Breakdown.Stars != 15 {
		t.Fatalf("stars sub-score = %d, want capped 15", q.Breakdown.Stars)
	}
	if q.Breakdown.AIAgent != 25 {
		t.Fatalf("ai agent sub-score = %d, want 25 for langchain", q.Breakdown.AIAgent)
	}
	if q.Breakdown.Crypto != 5 {
		t.Fatalf("crypto sub-score = %d, want 5", q.Breakdown.Crypto)
	}
	if q.Breakdown.ClaudeMCP != 30 {
		t.Fatalf("claude/mcp sub-score = %d, want 30 via matched query", q.Breakdown.ClaudeMCP)
	}
}

func TestActivityScoreBands(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"within 30d", 20 * 24 * time.Hour, 15},
		{"within 90d", 60 * 24 * time.Hour, 10},
		{"within 180d", 150 * 24 * time.Hour, 5},
		{"stale", 365 * 24 * time.Hour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repos := []MatchedRepo{{Name: "r", LastUpdated: now.Add(-tc.age)}}
			got := activityScore(repos, now)
			if got != tc.want {
				t.Fatalf("activityScore(age=%s) = %d, want %d", tc.age, got, tc.want)
			}
		})
	}
}

func TestActivityScoreUsesMostRecentRepo(t *testing.T) {
	now := time.Now().UTC()
	repos := []MatchedRepo{
		{Name: "old", LastUpdated: now.Add(-200 * 24 * time.Hour)},
		{Name: "fresh", LastUpdated: now.Add(-2 * 24 * time.Hour)},
	}

	if got := activityScore(repos, now); got != 15 {
		t.Fatalf("activityScore() = %d, want 15 from the most recent repo", got)
	}
}

func TestTierForScore(t *testing.T) {
	cases := []struct {
		score int
		want  Tier
	}{
		{100, TierA},
		{70, TierA},
		{69, TierB},
		{40, TierB},
		{39, TierC},
		{20, TierC},
		{19, TierD},
		{0, TierD},
	}

	for _, tc := range cases {
		if got := TierForScore(tc.score); got != tc.want {
			t.Fatalf("TierForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	if !TierA.AtLeast(TierB) {
		t.Fatalf("A should satisfy minimum B")
	}
	if TierC.AtLeast(TierB) {
		t.Fatalf("C should not satisfy minimum B")
	}
	if TierD.Contactable() {
		t.Fatalf("tier D must never be contactable")
	}
}

func TestPersonalizationHooksOrderAndContent(t *testing.T) {
	now := time.Now().UTC()
	repos := []MatchedRepo{
		{Name: "mcp-kit", Description: "claude mcp toolkit for web3 wallets", Stars: 90, LastUpdated: now},
		{Name: "agent-lab", Description: "crewai experiments", Stars: 10, LastUpdated: now},
	}

	q := Qualify(repos, now)
	if len(q.Hooks) != 5 {
		t.Fatalf("hooks = %#v, want 5 entries", q.Hooks)
	}
	if q.Hooks[0] != "ships Claude/MCP tooling" {
		t.Fatalf("hooks[0] = %q", q.Hooks[0])
	}
	if q.Hooks[1] != "builds with crewai" {
		t.Fatalf("hooks[1] = %q", q.Hooks[1])
	}
	if q.Hooks[4] != "standout repo: mcp-kit" {
		t.Fatalf("hooks[4] = %q", q.Hooks[4])
	}
}
