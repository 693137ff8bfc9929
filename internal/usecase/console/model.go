package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentdrop/internal/usecase/pipeline"
)

const maxShownRepos = 4
const maxShownActivity = 8

type Options struct {
	TierFilter      string
	RefreshInterval time.Duration
}

// tierCycle is the order the t key walks through.
var tierCycle = []string{"", "A", "B", "C", "D"}

type model struct {
	ctx             context.Context
	service         *pipeline.Service
	tierFilter      string
	refreshInterval time.Duration

	prospects     []pipeline.ProspectListItem
	selectedIndex int
	detail        pipeline.ProspectDetail
	hasDetail     bool
	stats         pipeline.StatsResult
	hasStats      bool
	activity      []string
	status        string
}

type prospectsLoadedMsg struct {
	items []pipeline.ProspectListItem
	err   error
}

type detailLoadedMsg struct {
	username string
	detail   pipeline.ProspectDetail
	err      error
}

type statsLoadedMsg struct {
	stats    pipeline.StatsResult
	activity []string
	err      error
}

type tickMsg struct{}

type syncDoneMsg struct {
	pushed int
	err    error
}

func NewModel(ctx context.Context, service *pipeline.Service, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &model{
		ctx:             ctx,
		service:         service,
		tierFilter:      strings.ToUpper(strings.TrimSpace(options.TierFilter)),
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.loadProspectsCmd(), m.loadStatsCmd(), m.tickCmd())
}

func (m *model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadProspectsCmd(), m.loadStatsCmd(), m.tickCmd())
	case prospectsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.prospects = msg.items
		if len(m.prospects) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "no prospects match the filter"
			return m, nil
		}
		if m.selectedIndex >= len(m.prospects) {
			m.selectedIndex = len(m.prospects) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d prospects", len(m.prospects))
		return m, m.loadSelectedDetailCmd()
	case detailLoadedMsg:
		if !m.isCurrentSelection(msg.username) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail load failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case statsLoadedMsg:
		if msg.err != nil {
			m.status = "stats load failed: " + msg.err.Error()
			return m, nil
		}
		m.stats = msg.stats
		m.hasStats = true
		m.activity = msg.activity
		return m, nil
	case syncDoneMsg:
		if msg.err != nil {
			m.status = "sync failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("mirror sync done, %d prospects pushed", msg.pushed)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, tea.Batch(m.loadProspectsCmd(), m.loadStatsCmd())
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.prospects)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "t":
			m.tierFilter = nextTierFilter(m.tierFilter)
			m.selectedIndex = 0
			m.status = "filter tier=" + displayTier(m.tierFilter)
			return m, m.loadProspectsCmd()
		case "s":
			m.status = "syncing mirror"
			return m, m.syncCmd()
		}
	}
	return m, nil
}

func (m *model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Agentdrop Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"tier=%s refresh=%s",
		displayTier(m.tierFilter),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Prospects"))
	builder.WriteString("\n")
	if len(m.prospects) == 0 {
		builder.WriteString(dimStyle.Render("- no prospects"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.prospects {
			line := fmt.Sprintf("%-20s %s score=%s outreach=%s payout=%s",
				item.Username,
				tierBadge(item.Tier),
				displayScore(item.Score),
				item.OutreachStatus,
				item.PayoutStatus,
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		record := m.detail.Record
		builder.WriteString(fmt.Sprintf("Username: %s\n", record.Username))
		builder.WriteString(fmt.Sprintf("Score/Tier: %s / %s\n", displayScore(record.Score), tierBadge(record.Tier)))
		builder.WriteString(fmt.Sprintf("Outreach: %s", record.OutreachStatus))
		if record.PRURL != nil {
			builder.WriteString("  " + *record.PRURL)
		}
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Address: %s valid=%t\n", deref(record.WalletAddress, "-"), record.AddressValid))
		builder.WriteString(fmt.Sprintf("Payout: %s", record.PayoutStatus))
		if record.PayoutTxID != nil {
			builder.WriteString("  " + *record.PayoutTxID)
		}
		builder.WriteString("\n")

		builder.WriteString("\nMatched Repos:\n")
		if len(m.detail.Repos) == 0 {
			builder.WriteString("- none\n")
		} else {
			shown := m.detail.Repos
			if len(shown) > maxShownRepos {
				shown = shown[:maxShownRepos]
			}
			for _, repo := range shown {
				builder.WriteString(fmt.Sprintf("- %s ★%d (%s)\n", repo.FullName, repo.Stars, repo.MatchedQuery))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Today"))
	builder.WriteString("\n")
	if !m.hasStats {
		builder.WriteString(dimStyle.Render("- loading"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("- prospects total=%d tiers A=%d B=%d C=%d D=%d\n",
			m.stats.Total,
			m.stats.ByTier["A"], m.stats.ByTier["B"], m.stats.ByTier["C"], m.stats.ByTier["D"],
		))
		builder.WriteString(fmt.Sprintf("- budget prs=%d/%d payouts=%d/%d\n",
			m.stats.PRsToday, m.stats.MaxDailyPRs,
			m.stats.PayoutsToday, m.stats.MaxPayouts,
		))
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Activity"))
	builder.WriteString("\n")
	if len(m.activity) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.activity {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + m.status)
	builder.WriteString("\n\n")

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  t cycle tier  s sync mirror  q quit"))
	return builder.String()
}

func (m *model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *model) loadProspectsCmd() tea.Cmd {
	tier := m.tierFilter
	return func() tea.Msg {
		items, err := m.service.ListProspects(m.ctx, pipeline.ListProspectsInput{
			Tier:  tier,
			Limit: 100,
		})
		if err != nil {
			return prospectsLoadedMsg{err: err}
		}
		return prospectsLoadedMsg{items: items}
	}
}

func (m *model) loadSelectedDetailCmd() tea.Cmd {
	if len(m.prospects) == 0 {
		return nil
	}
	selected := m.prospects[m.selectedIndex]
	return func() tea.Msg {
		detail, err := m.service.GetProspectDetail(m.ctx, selected.Username)
		if err != nil {
			return detailLoadedMsg{username: selected.Username, err: err}
		}
		return detailLoadedMsg{username: selected.Username, detail: detail}
	}
}

func (m *model) loadStatsCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.service.Stats(m.ctx)
		if err != nil {
			return statsLoadedMsg{err: err}
		}

		entries, err := m.service.RecentActivity(m.ctx, maxShownActivity)
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		lines := make([]string, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			lines = append(lines, fmt.Sprintf("%s %s", entry.CreatedAt.UTC().Format("15:04"), entry.Action))
		}
		return statsLoadedMsg{stats: stats, activity: lines}
	}
}

func (m *model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.service.Sync(m.ctx)
		if err != nil {
			return syncDoneMsg{err: err}
		}
		return syncDoneMsg{pushed: result.Pushed}
	}
}

func (m *model) isCurrentSelection(username string) bool {
	if len(m.prospects) == 0 || m.selectedIndex >= len(m.prospects) {
		return false
	}
	return strings.EqualFold(m.prospects[m.selectedIndex].Username, username)
}

func nextTierFilter(current string) string {
	for i, tier := range tierCycle {
		if tier == current {
			return tierCycle[(i+1)%len(tierCycle)]
		}
	}
	return ""
}

func displayTier(tier string) string {
	if tier == "" {
		return "all"
	}
	return tier
}

func tierBadge(tier *string) string {
	if tier == nil {
		return "[?]"
	}
	return "[" + *tier + "]"
}

func displayScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

func deref(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
