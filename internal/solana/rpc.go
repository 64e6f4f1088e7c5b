// Package solana provides the read-only chain-data accessor the monitor
// needs: account bytes, token balances and mint supply over JSON-RPC 2.0.
package solana

import "context"

// ChainReader defines the read-only chain access used by the decoder and
// the copy-trade orchestration. Implementations must be safe for
// concurrent use.
type ChainReader interface {
	// GetAccountInfo retrieves raw account data by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenSupply returns the raw supply and decimals of a mint.
	GetTokenSupply(ctx context.Context, mint string) (amount uint64, decimals uint8, err error)

	// GetTokenAccountBalance returns the raw balance and decimals of a
	// token vault account.
	GetTokenAccountBalance(ctx context.Context, account string) (amount uint64, decimals uint8, err error)

	// GetBalance returns an address's SOL balance in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}
