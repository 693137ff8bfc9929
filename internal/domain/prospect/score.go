package prospect

import (
	"fmt"
	"strings"
	"time"
)

// MatchedRepo is the discovery evidence one repository contributed: what the
// search returned plus the query that matched it. The query string takes part
// in scoring alongside name and description.
type MatchedRepo struct {
	Name         string
	FullName     string
	URL          string
	Stars        int
	Description  string
	Language     string
	LastUpdated  time.Time
	MatchedQuery string
}

// ScoreBreakdown holds the six independently capped sub-scores. Caps sum to
// 100, so Total never needs clamping.
type ScoreBreakdown struct {
	ClaudeMCP int `json:"claude_mcp"`
	AIAgent   int `json:"ai_agent"`
	Stars     int `json:"stars"`
	Activity  int `json:"activity"`
	Followers int `json:"followers"`
	Crypto    int `json:"crypto"`
}

func (b ScoreBreakdown) Total() int {
	return b.ClaudeMCP + b.AIAgent + b.Stars + b.Activity + b.Followers + b.Crypto
}

type Qualification struct {
	Score     int
	Tier      Tier
	Breakdown ScoreBreakdown
	Hooks     []string
}

const (
	claudeMCPPoints = 30
	aiAgentCap      = 25
	starsCap        = 15
	cryptoPoints    = 5
	starsPerPoint   = 10
)

var claudeIndicators = []string{
	"claude",
	"anthropic",
	"model context protocol",
	"modelcontextprotocol",
	"mcp",
}

// agentFrameworkPoints is checked per repo against query+name+description;
// the single highest triggered value wins, capped at aiAgentCap.
var agentFrameworkPoints = []struct {
	Pattern string
	Points  int
}{
	{"langchain", 25},
	{"autogen", 20},
	{"crewai", 20},
	{"agentkit", 20},
	{"ai agent", 15},
	{"ai-agent", 15},
	{"llm agent", 15},
	{"autonomous agent", 15},
	{"openai", 10},
	{"llm", 10},
}

var cryptoKeywords = []string{
	"bitcoin",
	"ethereum",
	"stacks",
	"blockchain",
	"web3",
	"crypto",
	"defi",
	"wallet",
	"smart contract",
	"solidity",
	"clarity",
}

// Qualify scores a prospect's matched-repo evidence. It is a pure function
// of the evidence and now (used only for activity recency); zero evidence
// yields score 0 and tier D.
func Qualify(repos []MatchedRepo, now time.Time) Qualification {
	breakdown := ScoreBreakdown{
		ClaudeMCP: claudeMCPScore(repos),
		AIAgent:   aiAgentScore(repos),
		Stars:     starsScore(repos),
		Activity:  activityScore(repos, now),
		Followers: followersScore(),
		Crypto:    cryptoScore(repos),
	}

	score := breakdown.Total()
	return Qualification{
		Score:     score,
		Tier:      TierForScore(score),
		Breakdown: breakdown,
		Hooks:     personalizationHooks(repos, breakdown),
	}
}

func repoHaystack(repo MatchedRepo) string {
	return strings.ToLower(repo.MatchedQuery + " " + repo.Name + " " + repo.Description)
}

func claudeMCPScore(repos []MatchedRepo) int {
	for _, repo := range repos {
		haystack := repoHaystack(repo)
		for _, indicator := range claudeIndicators {
			if strings.Contains(haystack, indicator) {
				return claudeMCPPoints
			}
		}
	}
	return 0
}

func aiAgentScore(repos []MatchedRepo) int {
	best := 0
	for _, repo := range repos {
		haystack := repoHaystack(repo)
		for _, entry := range agentFrameworkPoints {
			if strings.Contains(haystack, entry.Pattern) && entry.Points > best {
				best = entry.Points
			}
		}
	}
	if best > aiAgentCap {
		best = aiAgentCap
	}
	return best
}

func starsScore(repos []MatchedRepo) int {
	total := 0
	for _, repo := range repos {
		total += repo.Stars
	}

	points := total / starsPerPoint
	if points > starsCap {
		points = starsCap
	}
	return points
}

func activityScore(repos []MatchedRepo, now time.Time) int {
	var latest time.Time
	for _, repo := range repos {
		if repo.LastUpdated.After(latest) {
			latest = repo.LastUpdated
		}
	}
	if latest.IsZero() {
		return 0
	}

	age := now.Sub(latest)
	switch {
	case age <= 30*24*time.Hour:
		return 15
	case age <= 90*24*time.Hour:
		return 10
	case age <= 180*24*time.Hour:
		return 5
	default:
		return 0
	}
}

// followersScore is a placeholder pending richer profile data. The weight
// stays in the total so tier thresholds remain stable.
func followersScore() int {
	return 0
}

func cryptoScore(repos []MatchedRepo) int {
	for _, repo := range repos {
		haystack := repoHaystack(repo)
		for _, keyword := range cryptoKeywords {
			if strings.Contains(haystack, keyword) {
				return cryptoPoints
			}
		}
	}
	return 0
}

// personalizationHooks derives ordered template fodder from which sub-scores
// fired. Used for outbound message copy only, never for scoring.
func personalizationHooks(repos []MatchedRepo, breakdown ScoreBreakdown) []string {
	hooks := make([]string, 0, 5)

	if breakdown.ClaudeMCP > 0 {
		hooks = append(hooks, "ships Claude/MCP tooling")
	}
	if breakdown.AIAgent > 0 {
		if pattern := bestAgentPattern(repos); pattern != "" {
			hooks = append(hooks, fmt.Sprintf("builds with %s", pattern))
		}
	}
	if breakdown.Crypto > 0 {
		hooks = append(hooks, "has prior crypto work")
	}

	totalStars := 0
	var topRepo MatchedRepo
	for _, repo := range repos {
		totalStars += repo.Stars
		if repo.Stars >= topRepo.Stars {
			topRepo = repo
		}
	}
	if totalStars > 0 {
		hooks = append(hooks, fmt.Sprintf("%d stars across matched repos", totalStars))
	}
	if topRepo.Name != "" {
		hooks = append(hooks, fmt.Sprintf("standout repo: %s", topRepo.Name))
	}

	return hooks
}

func bestAgentPattern(repos []MatchedRepo) string {
	best := 0
	pattern := ""
	for _, repo := range repos {
		haystack := repoHaystack(repo)
		for _, entry := range agentFrameworkPoints {
			if strings.Contains(haystack, entry.Pattern) && entry.Points > best {
				best = entry.Points
				pattern = entry.Pattern
			}
		}
	}
	return pattern
}
