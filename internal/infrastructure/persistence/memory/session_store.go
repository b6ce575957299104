// Package memory keeps 3-D Secure sessions in process memory. Sessions expire
// after a period of inactivity, which is how abandoned flows are collected.
// Suitable for a single instance; use the postgres or redis stores otherwise.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

type SessionStore struct {
	cache *cache.Cache
}

// NewSessionStore expires a session ttl after its last save.
func NewSessionStore(ttl, cleanupInterval time.Duration) *SessionStore {
	return &SessionStore{cache: cache.New(ttl, cleanupInterval)}
}

// Save stores a copy, so later changes to session are not visible until the
// next Save.
func (s *SessionStore) Save(_ context.Context, session *domain.ThreeDSecureSession) error {
	s.cache.Set(session.OrderRef, *session, cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) Get(_ context.Context, orderRef string) (*domain.ThreeDSecureSession, error) {
	v, ok := s.cache.Get(orderRef)
	if !ok {
		return nil, domain.NewSessionNotFoundError(orderRef)
	}
	session := v.(domain.ThreeDSecureSession)
	return &session, nil
}

func (s *SessionStore) Delete(_ context.Context, orderRef string) error {
	s.cache.Delete(orderRef)
	return nil
}

// Len is the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.ItemCount()
}
