// Package notify holds the delivery channels the outbox workers drive.
package notify

import (
	"context"
	"fmt"

	"github.com/tripsignal/tripsignal/internal/models"
)

// Deliverer performs the channel-specific side effect for one message.
// Delivery is at-least-once: a retried Deliver of the same message must be
// acceptable; duplicate suppression is not attempted at this layer.
type Deliverer interface {
	Deliver(ctx context.Context, msg *models.OutboxMessage) error
}

// SendError marks a transport-level failure (network, auth, provider
// rejection) as distinct from a programming error. Both are retried, but
// only send failures are expected in normal operation.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("send failed: %s", e.Reason)
}

func (e *SendError) Unwrap() error { return e.Err }
