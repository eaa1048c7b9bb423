package ports

import (
	"context"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

// EntryFunctionCall addresses a fixed on-chain function. The contract itself
// is an external collaborator; this layer only shapes the call.
type EntryFunctionCall struct {
	Function      string
	TypeArguments []string
	Arguments     []any
}

type TransactionStatus struct {
	Hash      string
	Committed bool
	Success   bool
	VMStatus  string
}

// ChainClient is the blockchain RPC boundary. SubmitSponsored signs with the
// keyless account, co-signs with the fee payer, and returns the accepted
// transaction hash; it must serialize submissions per signing account.
// WaitForTransaction is a separate bounded wait: an accepted hash is not a
// committed transaction.
type ChainClient interface {
	SubmitSponsored(ctx context.Context, account domain.KeylessAccount, call EntryFunctionCall) (string, error)
	WaitForTransaction(ctx context.Context, hash string) (TransactionStatus, error)
	View(ctx context.Context, call EntryFunctionCall) ([]any, error)
	ProfileExists(ctx context.Context, address string) (bool, error)
	AccountBalance(ctx context.Context, address string) (int64, error)
}
