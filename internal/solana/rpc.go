package solana

import "context"

// ChainReader is the read-only token surface used by risk checks.
type ChainReader interface {
	// GetTokenSupply returns the total supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenAccountsByOwner returns token accounts of mint owned by owner.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)

	// GetTokenAccountBalance returns the balance of a token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// GetTokenAccountsByMint returns every token account holding mint.
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error)
}

// FeeOracle prices messages before submission.
type FeeOracle interface {
	// GetLatestBlockhash returns the most recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetFeeForMessage returns the fee in lamports for a base64 message.
	// Returns nil when the node cannot price the message.
	GetFeeForMessage(ctx context.Context, message string) (*uint64, error)
}

// TxSender broadcasts signed transactions and reports their status.
type TxSender interface {
	// SendTransaction submits a base64-encoded signed transaction.
	SendTransaction(ctx context.Context, tx string) (string, error)

	// GetSignatureStatuses returns statuses in input order; unknown signatures are nil.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	ChainReader
	FeeOracle
	TxSender
}
