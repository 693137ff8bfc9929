package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agentdrop/internal/bootstrap/config"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

// Client talks to a Stacks API node for reads and to the treasury signer
// service for transfers. The signer owns the key material; this process
// never sees it.
type Client struct {
	apiBase     string
	signerBase  string
	signerToken string
	httpClient  *http.Client
}

var _ ports.ChainClient = (*Client)(nil)

var ErrSignerNotConfigured = errors.New("network.signer_url is not configured")

func NewClient(cfg config.NetworkConfig) *Client {
	return &Client{
		apiBase:     strings.TrimRight(cfg.APIURL, "/"),
		signerBase:  strings.TrimRight(cfg.SignerURL, "/"),
		signerToken: cfg.SignerToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type balancesResponse struct {
	STX struct {
		Balance string `json:"balance"`
	} `json:"stx"`
	FungibleTokens map[string]struct {
		Balance string `json:"balance"`
	} `json:"fungible_tokens"`
}

func (c *Client) GetBalance(ctx context.Context, address string) (ports.Balance, error) {
	endpoint := fmt.Sprintf("%s/extended/v1/address/%s/balances", c.apiBase, address)

	var payload balancesResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return ports.Balance{}, errs.Wrap(err, "fetch balances")
	}

	native, err := strconv.ParseInt(payload.STX.Balance, 10, 64)
	if err != nil {
		return ports.Balance{}, errs.Wrapf(err, "parse stx balance %q", payload.STX.Balance)
	}

	balance := ports.Balance{NativeMicroSTX: native}
	for asset, token := range payload.FungibleTokens {
		if !strings.Contains(strings.ToLower(asset), "sbtc") {
			continue
		}
		sats, err := strconv.ParseInt(token.Balance, 10, 64)
		if err != nil {
			return ports.Balance{}, errs.Wrapf(err, "parse token balance %q", token.Balance)
		}
		balance.TokenSats = sats
		break
	}
	return balance, nil
}

type transferRequest struct {
	Recipient   string `json:"recipient"`
	AmountSats  int64  `json:"amount_sats"`
	Memo        string `json:"memo,omitempty"`
	ExactAmount bool   `json:"exact_amount"`
}

type transferResponse struct {
	TxID  string `json:"txid"`
	Error string `json:"error"`
}

func (c *Client) SendTransfer(ctx context.Context, req ports.TransferRequest) (string, error) {
	if c.signerBase == "" {
		return "", ErrSignerNotConfigured
	}

	body, err := json.Marshal(transferRequest{
		Recipient:   req.Recipient,
		AmountSats:  req.AmountSats,
		Memo:        req.Memo,
		ExactAmount: true,
	})
	if err != nil {
		return "", errs.Wrap(err, "encode transfer request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signerBase+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(err, "build transfer request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.signerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.signerToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errs.Wrap(err, "call signer")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload transferResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", errs.Wrap(err, "decode transfer response")
	}
	if payload.Error != "" {
		return "", fmt.Errorf("signer rejected transfer: %s", payload.Error)
	}
	if payload.TxID == "" {
		return "", errors.New("signer response missing txid")
	}
	return payload.TxID, nil
}

type txResponse struct {
	TxStatus    string `json:"tx_status"`
	BlockHeight int64  `json:"block_height"`
}

func (c *Client) GetTransactionStatus(ctx context.Context, txid string) (ports.TxStatus, error) {
	endpoint := fmt.Sprintf("%s/extended/v1/tx/%s", c.apiBase, txid)

	var payload txResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return ports.TxStatus{}, errs.Wrap(err, "fetch transaction")
	}

	status := ports.TxStatus{BlockHeight: payload.BlockHeight}
	switch {
	case payload.TxStatus == "success":
		status.State = ports.TxSuccess
	case strings.HasPrefix(payload.TxStatus, "abort"):
		status.State = ports.TxAborted
	default:
		status.State = ports.TxPending
	}
	return status, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errs.Wrap(err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(err, "call stacks api")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("stacks api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(err, "decode response")
	}
	return nil
}
