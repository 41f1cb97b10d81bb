// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-token-gate/internal/solana"
)

// ErrNotFound is returned when an account or mint is not known to the stub.
var ErrNotFound = errors.New("not found")

// Method names used for call counting and error injection.
const (
	MethodGetTokenSupply          = "getTokenSupply"
	MethodGetTokenAccountsByOwner = "getTokenAccountsByOwner"
	MethodGetTokenAccountBalance  = "getTokenAccountBalance"
	MethodGetTokenAccountsByMint  = "getTokenAccountsByMint"
	MethodGetLatestBlockhash      = "getLatestBlockhash"
	MethodGetFeeForMessage        = "getFeeForMessage"
	MethodSendTransaction         = "sendTransaction"
	MethodGetSignatureStatuses    = "getSignatureStatuses"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Supplies map[string]solana.TokenAmount
	// OwnerAccounts is keyed by owner+"/"+mint.
	OwnerAccounts map[string][]solana.TokenAccount
	Balances      map[string]solana.TokenAmount
	MintAccounts  map[string][]solana.TokenAccount
	Statuses      map[string]*solana.SignatureStatus

	Blockhash string
	Fee       *uint64
	Signature string

	// Errors injects a failure for a method name.
	Errors map[string]error

	calls map[string]int
	sent  []string
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Supplies:      make(map[string]solana.TokenAmount),
		OwnerAccounts: make(map[string][]solana.TokenAccount),
		Balances:      make(map[string]solana.TokenAmount),
		MintAccounts:  make(map[string][]solana.TokenAccount),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Blockhash:     "11111111111111111111111111111111",
		Signature:     "stubsig",
		Errors:        make(map[string]error),
		calls:         make(map[string]int),
	}
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Errors[method]
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of invocations across all methods.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// Sent returns the transactions passed to SendTransaction.
func (c *RPCClient) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// SetError injects err for method. A nil err clears it.
func (c *RPCClient) SetError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.Errors, method)
		return
	}
	c.Errors[method] = err
}

// SetSupply sets the UI supply string of a mint.
func (c *RPCClient) SetSupply(mint, uiAmount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = solana.TokenAmount{UIAmountString: uiAmount}
}

// AddPool registers a pool token account owned by owner with a UI balance.
func (c *RPCClient) AddPool(owner, mint, pubkey, uiAmount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := owner + "/" + mint
	c.OwnerAccounts[key] = append(c.OwnerAccounts[key], solana.TokenAccount{
		Pubkey: pubkey,
		Owner:  owner,
		Mint:   mint,
	})
	c.Balances[pubkey] = solana.TokenAmount{UIAmountString: uiAmount}
}

// SetBalance sets the UI balance of a token account.
func (c *RPCClient) SetBalance(account, uiAmount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = solana.TokenAmount{UIAmountString: uiAmount}
}

// AddHolders registers n token accounts with distinct owners for mint.
func (c *RPCClient) AddHolders(mint string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.MintAccounts[mint] = append(c.MintAccounts[mint], solana.TokenAccount{
			Pubkey: fmt.Sprintf("%s-acc-%d", mint, len(c.MintAccounts[mint])),
			Owner:  fmt.Sprintf("%s-owner-%d", mint, len(c.MintAccounts[mint])),
			Mint:   mint,
		})
	}
}

// AddHolderAccount registers a single token account for mint owned by owner.
func (c *RPCClient) AddHolderAccount(mint, pubkey, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MintAccounts[mint] = append(c.MintAccounts[mint], solana.TokenAccount{
		Pubkey: pubkey,
		Owner:  owner,
		Mint:   mint,
	})
}

// SetFee sets the fee returned by GetFeeForMessage. Nil means unpriceable.
func (c *RPCClient) SetFee(lamports *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fee = lamports
}

// SetStatus sets the status returned for a signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// GetTokenSupply returns the stubbed supply of a mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	if err := c.enter(MethodGetTokenSupply); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	supply, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return &supply, nil
}

// GetTokenAccountsByOwner returns stubbed accounts for owner and mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	if err := c.enter(MethodGetTokenAccountsByOwner); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	accounts := c.OwnerAccounts[owner+"/"+mint]
	out := make([]solana.TokenAccount, len(accounts))
	copy(out, accounts)
	return out, nil
}

// GetTokenAccountBalance returns the stubbed balance of an account.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	if err := c.enter(MethodGetTokenAccountBalance); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	balance, ok := c.Balances[account]
	if !ok {
		return nil, ErrNotFound
	}
	return &balance, nil
}

// GetTokenAccountsByMint returns stubbed holder accounts of mint.
func (c *RPCClient) GetTokenAccountsByMint(_ context.Context, mint string) ([]solana.TokenAccount, error) {
	if err := c.enter(MethodGetTokenAccountsByMint); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	accounts := c.MintAccounts[mint]
	out := make([]solana.TokenAccount, len(accounts))
	copy(out, accounts)
	return out, nil
}

// GetLatestBlockhash returns the stubbed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	if err := c.enter(MethodGetLatestBlockhash); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.Blockhash{Hash: c.Blockhash, LastValidBlockHeight: 1000}, nil
}

// GetFeeForMessage returns the stubbed fee.
func (c *RPCClient) GetFeeForMessage(_ context.Context, _ string) (*uint64, error) {
	if err := c.enter(MethodGetFeeForMessage); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fee == nil {
		return nil, nil
	}
	fee := *c.Fee
	return &fee, nil
}

// SendTransaction records tx and returns the stubbed signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx string) (string, error) {
	if err := c.enter(MethodSendTransaction); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	return c.Signature, nil
}

// GetSignatureStatuses returns stubbed statuses in input order.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if err := c.enter(MethodGetSignatureStatuses); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}
