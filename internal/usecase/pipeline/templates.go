package pipeline

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"agentdrop/internal/errs"
)

// Campaign holds the operator-editable copy and discovery strategy. It is
// loaded once at startup from a TOML file; a missing file falls back to the
// built-in defaults so a fresh checkout works without any config.
type Campaign struct {
	Queries  []string         `toml:"queries"`
	Outreach OutreachCopy     `toml:"outreach"`
	Replies  ReplyCopy        `toml:"replies"`
	Payout   PayoutMemoConfig `toml:"payout"`
}

type OutreachCopy struct {
	PRTitle       string `toml:"pr_title"`
	PRBody        string `toml:"pr_body"`
	CommitMessage string `toml:"commit_message"`
	InviteFile    string `toml:"invite_file"`
}

type ReplyCopy struct {
	AddressConfirmed string `toml:"address_confirmed"`
	InvalidAddress   string `toml:"invalid_address"`
	PayoutSent       string `toml:"payout_sent"`
	PayoutFailed     string `toml:"payout_failed"`
}

type PayoutMemoConfig struct {
	Memo string `toml:"memo"`
}

// LoadCampaign reads the campaign file. A missing file is not an error;
// a malformed one is.
func LoadCampaign(path string) (Campaign, error) {
	campaign := defaultCampaign()
	if path == "" {
		return campaign, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return campaign, nil
		}
		return Campaign{}, errs.Wrapf(err, "read campaign file %s", path)
	}

	if err := toml.Unmarshal(raw, &campaign); err != nil {
		return Campaign{}, errs.Wrapf(err, "parse campaign file %s", path)
	}
	if len(campaign.Queries) == 0 {
		campaign.Queries = defaultSearchQueries
	}
	return campaign, nil
}

func defaultCampaign() Campaign {
	return Campaign{
		Queries: defaultSearchQueries,
		Outreach: OutreachCopy{
			PRTitle:       "An invitation for {{.Username}}: sBTC rewards for AI builders",
			CommitMessage: "Add builder rewards invitation",
			PRBody: strings.TrimSpace(`
Hi @{{.Username}},

We noticed your work{{if .Hooks}} ({{join .Hooks ", "}}){{end}} and would love
to send you an sBTC reward for building in the AI/agent ecosystem.

To claim it, reply to this pull request with a Stacks address (it starts with
SP or ST). We will send the reward on-chain and post the transaction id here.

No signup, no strings attached. Feel free to close this PR if you are not
interested.
`),
			InviteFile: strings.TrimSpace(`
# Builder Rewards Invitation

This repository caught our attention: {{.TargetRepo}}.

Reply to the pull request that added this file with a Stacks wallet address
(SP... or ST...) to receive an sBTC reward.
`),
		},
		Replies: ReplyCopy{
			AddressConfirmed: strings.TrimSpace(`
Got it, ` + "`{{.Address}}`" + ` is a valid Stacks address. Your sBTC reward is
queued for the next payout run; we will post the transaction id here once it
broadcasts.
`),
			InvalidAddress: strings.TrimSpace(`
Thanks for the reply! The address ` + "`{{.Address}}`" + ` does not look like a
valid Stacks address (SP/ST prefix plus 38-39 characters, letters I, L, O and
U never appear). Could you double-check and post it again?
`),
			PayoutSent: strings.TrimSpace(`
Your reward is on the way! Transaction: ` + "`{{.TxID}}`" + ` ({{.AmountSats}} sats of sBTC).
`),
			PayoutFailed: strings.TrimSpace(`
We hit a problem broadcasting your reward transaction. We will look into it
and retry; no action needed on your side.
`),
		},
		Payout: PayoutMemoConfig{
			Memo: "agentdrop reward",
		},
	}
}

type templateData struct {
	Username   string
	TargetRepo string
	Hooks      []string
	Address    string
	TxID       string
	AmountSats int64
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

func renderCopy(name, text string, data templateData) (string, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", errs.Wrapf(err, "parse %s template", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errs.Wrapf(err, "render %s template", name)
	}
	return buf.String(), nil
}
