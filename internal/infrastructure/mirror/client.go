package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentdrop/internal/bootstrap/config"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

// Client pushes snapshots to the public dashboard mirror. The mirror is a
// dumb replica; every push is a full upsert keyed by username or date.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ ports.MirrorClient = (*Client)(nil)

func NewClient(cfg config.MirrorConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether a mirror URL is configured. Sync is a no-op when
// it is not.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type prospectSnapshot struct {
	Username       string     `json:"username"`
	Score          *int       `json:"score"`
	Tier           *string    `json:"tier"`
	OutreachStatus string     `json:"outreach_status"`
	PRURL          *string    `json:"pr_url"`
	AddressValid   bool       `json:"address_valid"`
	PayoutStatus   string     `json:"payout_status"`
	PayoutTxID     *string    `json:"payout_txid"`
	PayoutAmount   *int64     `json:"payout_amount"`
	UpdatedAt      time.Time  `json:"updated_at"`
	VerifiedAt     *time.Time `json:"verified_at"`
}

func (c *Client) PushProspects(ctx context.Context, prospects []ports.ProspectRecord) error {
	snapshots := make([]prospectSnapshot, 0, len(prospects))
	for _, p := range prospects {
		snapshots = append(snapshots, prospectSnapshot{
			Username:       p.Username,
			Score:          p.Score,
			Tier:           p.Tier,
			OutreachStatus: p.OutreachStatus,
			PRURL:          p.PRURL,
			AddressValid:   p.AddressValid,
			PayoutStatus:   p.PayoutStatus,
			PayoutTxID:     p.PayoutTxID,
			PayoutAmount:   p.PayoutAmount,
			UpdatedAt:      p.UpdatedAt,
			VerifiedAt:     p.VerifiedAt,
		})
	}
	return c.put(ctx, "/v1/prospects", map[string]any{"prospects": snapshots})
}

func (c *Client) PushDailyLimits(ctx context.Context, row ports.DailyLimitsRow) error {
	return c.put(ctx, "/v1/limits/today", map[string]any{
		"date":         row.Date,
		"prs_opened":   row.PRsOpened,
		"payouts_sent": row.PayoutsSent,
	})
}

func (c *Client) put(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "encode mirror payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build mirror request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Service-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(err, "call mirror")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mirror returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
