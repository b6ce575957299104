package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// Journal is an in-memory application.TransactionJournal. The Fn hooks
// override the default behaviour of each method.
type Journal struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFn func(ctx context.Context, tx *domain.Transaction) error
	UpdateFn func(ctx context.Context, tx *domain.Transaction) error
}

func NewJournal() *Journal {
	return &Journal{transactions: make(map[string]*domain.Transaction)}
}

func (j *Journal) Create(ctx context.Context, tx *domain.Transaction) error {
	if j.CreateFn != nil {
		return j.CreateFn(ctx, tx)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, existing := range j.transactions {
		if existing.OrderID == tx.OrderID {
			return domain.ErrDuplicateOrderID
		}
	}
	j.transactions[tx.ID] = clone(tx)
	return nil
}

func (j *Journal) Update(ctx context.Context, tx *domain.Transaction) error {
	if j.UpdateFn != nil {
		return j.UpdateFn(ctx, tx)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.transactions[tx.ID]; !ok {
		return domain.NewTransactionNotFoundError(tx.ID)
	}
	j.transactions[tx.ID] = clone(tx)
	return nil
}

func (j *Journal) UpdateFrom(_ context.Context, tx *domain.Transaction, from domain.TransactionStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	stored, ok := j.transactions[tx.ID]
	if !ok || stored.Status != from {
		return domain.NewInvalidTransitionError(string(from), string(tx.Status))
	}
	j.transactions[tx.ID] = clone(tx)
	return nil
}

func (j *Journal) FindByHostLogKey(_ context.Context, hostLogKey domain.HostLogKey) (*domain.Transaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, tx := range j.transactions {
		if tx.HostLogKey != nil && *tx.HostLogKey == hostLogKey {
			return clone(tx), nil
		}
	}
	return nil, domain.NewTransactionNotFoundError(string(hostLogKey))
}

func (j *Journal) FindByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, tx := range j.transactions {
		if tx.OrderID == orderID {
			return clone(tx), nil
		}
	}
	return nil, domain.NewTransactionNotFoundError(orderID)
}

func (j *Journal) FindPending(_ context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var pending []*domain.Transaction
	for _, tx := range j.transactions {
		if tx.Status == domain.TxStatusPending && tx.CreatedAt.Before(olderThan) {
			pending = append(pending, clone(tx))
		}
	}
	sort.Slice(pending, func(a, b int) bool { return pending[a].CreatedAt.Before(pending[b].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Get returns the stored copy of the transaction with id, or nil.
func (j *Journal) Get(id string) *domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if tx, ok := j.transactions[id]; ok {
		return clone(tx)
	}
	return nil
}

// Put stores tx as is, bypassing Create's duplicate check.
func (j *Journal) Put(tx *domain.Transaction) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transactions[tx.ID] = clone(tx)
}

func clone(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	return &c
}
