package stub

import (
	"context"
	"errors"

	"copytrade-monitor/internal/solana"
)

// ErrNotFound is returned when an account or mint is not in the stub store.
var ErrNotFound = errors.New("not found")

// tokenAmount pairs a raw amount with its decimals.
type tokenAmount struct {
	amount   uint64
	decimals uint8
}

// ChainReader implements solana.ChainReader for testing.
type ChainReader struct {
	Accounts map[string]*solana.AccountInfo
	supplies map[string]tokenAmount
	balances map[string]tokenAmount
	lamports map[string]uint64
}

// NewChainReader creates a new stub chain reader.
func NewChainReader() *ChainReader {
	return &ChainReader{
		Accounts: make(map[string]*solana.AccountInfo),
		supplies: make(map[string]tokenAmount),
		balances: make(map[string]tokenAmount),
		lamports: make(map[string]uint64),
	}
}

// Compile-time interface check.
var _ solana.ChainReader = (*ChainReader)(nil)

// GetAccountInfo retrieves an account from the stub store.
// Like the real client, a missing account yields (nil, nil).
func (c *ChainReader) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	return c.Accounts[pubkey], nil
}

// GetTokenSupply retrieves a mint's supply from the stub store.
func (c *ChainReader) GetTokenSupply(_ context.Context, mint string) (uint64, uint8, error) {
	ta, ok := c.supplies[mint]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return ta.amount, ta.decimals, nil
}

// GetTokenAccountBalance retrieves a vault balance from the stub store.
func (c *ChainReader) GetTokenAccountBalance(_ context.Context, account string) (uint64, uint8, error) {
	ta, ok := c.balances[account]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return ta.amount, ta.decimals, nil
}

// GetBalance retrieves a SOL balance from the stub store.
func (c *ChainReader) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	return c.lamports[pubkey], nil
}

// SetSupply registers a mint supply.
func (c *ChainReader) SetSupply(mint string, amount uint64, decimals uint8) {
	c.supplies[mint] = tokenAmount{amount: amount, decimals: decimals}
}

// SetTokenBalance registers a vault balance.
func (c *ChainReader) SetTokenBalance(account string, amount uint64, decimals uint8) {
	c.balances[account] = tokenAmount{amount: amount, decimals: decimals}
}

// SetBalance registers a SOL balance in lamports.
func (c *ChainReader) SetBalance(pubkey string, lamports uint64) {
	c.lamports[pubkey] = lamports
}
