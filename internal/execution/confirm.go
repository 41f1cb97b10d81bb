package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-gate/internal/solana"
)

// DefaultPollInterval is the status polling period of PollingConfirmer.
const DefaultPollInterval = 400 * time.Millisecond

// PollingConfirmer polls getSignatureStatuses until the signature lands.
type PollingConfirmer struct {
	sender     solana.TxSender
	commitment string
	interval   time.Duration
}

var _ Confirmer = (*PollingConfirmer)(nil)

// NewPollingConfirmer creates a polling confirmer. Zero values use defaults.
func NewPollingConfirmer(sender solana.TxSender, commitment string, interval time.Duration) *PollingConfirmer {
	if commitment == "" {
		commitment = solana.DefaultCommitment
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingConfirmer{
		sender:     sender,
		commitment: commitment,
		interval:   interval,
	}
}

// Confirm blocks until signature reaches the commitment, fails on chain, or
// ctx ends. Transient status errors are retried on the next tick.
func (c *PollingConfirmer) Confirm(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		statuses, err := c.sender.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, st.Err)
			}
			if st.Landed(c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubscriptionConfirmer waits for a signatureSubscribe notification.
type SubscriptionConfirmer struct {
	ws solana.WSClient
}

var _ Confirmer = (*SubscriptionConfirmer)(nil)

// NewSubscriptionConfirmer creates a websocket-backed confirmer.
func NewSubscriptionConfirmer(ws solana.WSClient) *SubscriptionConfirmer {
	return &SubscriptionConfirmer{ws: ws}
}

// Confirm subscribes to signature and waits for its single notification.
func (c *SubscriptionConfirmer) Confirm(ctx context.Context, signature string) error {
	ch, err := c.ws.SignatureSubscribe(ctx, signature)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", signature, err)
	}

	select {
	case n, ok := <-ch:
		if !ok {
			return errors.New("subscription closed before notification")
		}
		if n.Err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, n.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
