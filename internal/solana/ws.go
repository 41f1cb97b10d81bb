package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SignatureSubscribe waits for a single status notification of a signature.
	// The returned channel yields at most one value and is then closed.
	SignatureSubscribe(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is delivered once the signature reaches the
// subscription commitment. Err is non-nil if the transaction failed.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
