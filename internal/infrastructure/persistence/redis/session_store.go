// Package redis stores 3-D Secure sessions in Redis so any gateway instance
// can serve the bank's callback. Keys expire after the inactivity window.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

const keyPrefix = "posnet:3ds:session:"

type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

type sessionRecord struct {
	OrderRef      string    `json:"order_ref"`
	XID           string    `json:"xid"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Installment   string    `json:"installment"`
	TranType      string    `json:"tran_type"`
	Phase         string    `json:"phase"`
	MdStatus      string    `json:"md_status,omitempty"`
	BankData      string    `json:"bank_data,omitempty"`
	HostLogKey    string    `json:"host_log_key,omitempty"`
	AuthCode      string    `json:"auth_code,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *SessionStore) Save(ctx context.Context, session *domain.ThreeDSecureSession) error {
	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.OrderRef, err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.OrderRef, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.OrderRef, err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, orderRef string) (*domain.ThreeDSecureSession, error) {
	data, err := s.client.Get(ctx, keyPrefix+orderRef).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewSessionNotFoundError(orderRef)
		}
		return nil, fmt.Errorf("load session %s: %w", orderRef, err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", orderRef, err)
	}
	return rec.toDomain(), nil
}

func (s *SessionStore) Delete(ctx context.Context, orderRef string) error {
	if err := s.client.Del(ctx, keyPrefix+orderRef).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", orderRef, err)
	}
	return nil
}

func toRecord(s *domain.ThreeDSecureSession) sessionRecord {
	return sessionRecord{
		OrderRef:      s.OrderRef,
		XID:           s.XID,
		Amount:        s.Amount,
		Currency:      string(s.Currency),
		Installment:   s.Installment,
		TranType:      string(s.TranType),
		Phase:         string(s.Phase),
		MdStatus:      s.MdStatus,
		BankData:      s.BankData,
		HostLogKey:    string(s.HostLogKey),
		AuthCode:      s.AuthCode,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r sessionRecord) toDomain() *domain.ThreeDSecureSession {
	return &domain.ThreeDSecureSession{
		OrderRef:      r.OrderRef,
		XID:           r.XID,
		Amount:        r.Amount,
		Currency:      domain.Currency(r.Currency),
		Installment:   r.Installment,
		TranType:      domain.TranType(r.TranType),
		Phase:         domain.SessionPhase(r.Phase),
		MdStatus:      r.MdStatus,
		BankData:      r.BankData,
		HostLogKey:    domain.HostLogKey(r.HostLogKey),
		AuthCode:      r.AuthCode,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
