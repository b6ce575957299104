package mocks

import (
	"sync"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// Observation is one ObserveOperation call.
type Observation struct {
	Operation posnet.Operation
	Category  domain.ErrorCategory
}

// Recorder keeps what it is told so tests can assert on it.
type Recorder struct {
	mu             sync.Mutex
	Observations   []Observation
	SecurityEvents []domain.ErrorCode
}

func (r *Recorder) ObserveOperation(op posnet.Operation, category domain.ErrorCategory, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Observations = append(r.Observations, Observation{Operation: op, Category: category})
}

func (r *Recorder) SecurityEvent(code domain.ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SecurityEvents = append(r.SecurityEvents, code)
}
