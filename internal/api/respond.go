package api

import (
	"encoding/json"
	"net/http"
	"time"

	"agentdrop/internal/ports"
	"agentdrop/internal/usecase/pipeline"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

type prospectItem struct {
	ProspectID     uint64  `json:"prospect_id"`
	Username       string  `json:"username"`
	Score          *int    `json:"score"`
	Tier           *string `json:"tier"`
	OutreachStatus string  `json:"outreach_status"`
	PayoutStatus   string  `json:"payout_status"`
	AddressValid   bool    `json:"address_valid"`
	PRURL          *string `json:"pr_url"`
	UpdatedAt      string  `json:"updated_at"`
}

func prospectListPayload(items []pipeline.ProspectListItem) []prospectItem {
	out := make([]prospectItem, 0, len(items))
	for _, item := range items {
		out = append(out, prospectItem{
			ProspectID:     item.ProspectID,
			Username:       item.Username,
			Score:          item.Score,
			Tier:           item.Tier,
			OutreachStatus: item.OutreachStatus,
			PayoutStatus:   item.PayoutStatus,
			AddressValid:   item.AddressValid,
			PRURL:          item.PRURL,
			UpdatedAt:      item.UpdatedAt,
		})
	}
	return out
}

type matchedRepoItem struct {
	FullName     string    `json:"full_name"`
	URL          string    `json:"url"`
	Stars        int       `json:"stars"`
	Language     string    `json:"language"`
	LastUpdated  time.Time `json:"last_updated"`
	MatchedQuery string    `json:"matched_query"`
}

func prospectDetailPayload(detail pipeline.ProspectDetail) map[string]any {
	record := detail.Record
	repos := make([]matchedRepoItem, 0, len(detail.Repos))
	for _, repo := range detail.Repos {
		repos = append(repos, matchedRepoItem{
			FullName:     repo.FullName,
			URL:          repo.URL,
			Stars:        repo.Stars,
			Language:     repo.Language,
			LastUpdated:  repo.LastUpdated,
			MatchedQuery: repo.MatchedQuery,
		})
	}

	return map[string]any{
		"prospect_id":     record.ProspectID,
		"username":        record.Username,
		"github_id":       record.GithubID,
		"score":           record.Score,
		"tier":            record.Tier,
		"outreach_status": record.OutreachStatus,
		"target_repo":     record.TargetRepo,
		"pr_url":          record.PRURL,
		"pr_opened_at":    record.PROpenedAt,
		"wallet_address":  record.WalletAddress,
		"address_valid":   record.AddressValid,
		"verified_at":     record.VerifiedAt,
		"payout_status":   record.PayoutStatus,
		"payout_txid":     record.PayoutTxID,
		"payout_amount":   record.PayoutAmount,
		"block_height":    record.BlockHeight,
		"created_at":      record.CreatedAt,
		"matched_repos":   repos,
	}
}

type activityItem struct {
	EntryID    uint64    `json:"entry_id"`
	Action     string    `json:"action"`
	ProspectID *uint64   `json:"prospect_id"`
	RunID      string    `json:"run_id"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

func activityPayload(entries []ports.ActivityEntry) []activityItem {
	out := make([]activityItem, 0, len(entries))
	for _, entry := range entries {
		out = append(out, activityItem{
			EntryID:    entry.EntryID,
			Action:     entry.Action,
			ProspectID: entry.ProspectID,
			RunID:      entry.RunID,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return out
}
