package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// Gateway is the port for the bank's XML service. Implementations apply the
// per-call timeout and return a *domain.GatewayError for transport failures.
// A bank decline is not an error at this level: it comes back as a Response.
type Gateway interface {
	Send(ctx context.Context, req posnet.Request) (posnet.Response, error)
}

// SessionStore keeps 3-D Secure sessions between the redirect and the callback,
// keyed by order reference. Get returns domain.ErrSessionNotFound for unknown
// or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, session *domain.ThreeDSecureSession) error
	Get(ctx context.Context, orderRef string) (*domain.ThreeDSecureSession, error)
	Delete(ctx context.Context, orderRef string) error
}

// SessionSweeper is implemented by stores that do not expire entries on their
// own.
type SessionSweeper interface {
	DeleteAbandoned(ctx context.Context, olderThan time.Time) (int, error)
}

// TransactionJournal records sales and authorizations by host log key so
// follow-up operations can be checked before they reach the gateway.
type TransactionJournal interface {
	// Create returns domain.ErrDuplicateOrderID when the order id is taken.
	Create(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	// UpdateFrom writes tx only if the stored status is still from. Otherwise
	// it returns a domain.ErrInvalidTransition error and writes nothing.
	UpdateFrom(ctx context.Context, tx *domain.Transaction, from domain.TransactionStatus) error
	FindByHostLogKey(ctx context.Context, hostLogKey domain.HostLogKey) (*domain.Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
}

// PendingLister finds journal entries whose outcome was never learned.
type PendingLister interface {
	FindPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error)
}

// Recorder receives operation outcomes and security events for monitoring.
type Recorder interface {
	ObserveOperation(op posnet.Operation, category domain.ErrorCategory, elapsed time.Duration)
	SecurityEvent(code domain.ErrorCode)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveOperation(posnet.Operation, domain.ErrorCategory, time.Duration) {}
func (NopRecorder) SecurityEvent(domain.ErrorCode)                                       {}
