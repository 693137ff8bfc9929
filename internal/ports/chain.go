package ports

import "context"

// ChainClient is the payout-asset boundary. Amounts are sats, the smallest
// sBTC denomination.
type ChainClient interface {
	GetBalance(ctx context.Context, address string) (Balance, error)
	// SendTransfer must spend exactly AmountSats or fail; the txid of the
	// broadcast transaction is returned on success.
	SendTransfer(ctx context.Context, req TransferRequest) (txid string, err error)
	GetTransactionStatus(ctx context.Context, txid string) (TxStatus, error)
}

type Balance struct {
	NativeMicroSTX int64
	TokenSats      int64
}

type TransferRequest struct {
	Recipient  string
	AmountSats int64
	Memo       string
}

type TxState string

const (
	TxPending TxState = "pending"
	TxSuccess TxState = "success"
	TxAborted TxState = "aborted"
)

type TxStatus struct {
	State       TxState
	BlockHeight int64
}
