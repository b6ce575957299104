// Package security computes and verifies the gateway's message
// authentication codes.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

const separator = ";"

// Hash is base64(SHA-256(data)), the digest used by every gateway signature.
func Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ComputeMac chains the terminal secret into a MAC over fields:
//
//	firstHash = Hash(secret + ";" + terminalID)
//	mac       = Hash(field1 + ";" + ... + fieldN + ";" + firstHash)
func ComputeMac(terminalSecret, terminalID string, fields ...string) string {
	firstHash := Hash(terminalSecret + separator + terminalID)
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, fields...)
	parts = append(parts, firstHash)
	return Hash(strings.Join(parts, separator))
}

// VerifyMac compares two MACs in constant time. Both empty is a failure.
func VerifyMac(expected, candidate string) bool {
	if expected == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}

// Authenticator binds the read-only terminal credentials loaded at startup.
// It holds no mutable state and is safe for concurrent use.
type Authenticator struct {
	secret     string
	merchantID string
	terminalID string
}

func NewAuthenticator(secret, merchantID, terminalID string) *Authenticator {
	return &Authenticator{
		secret:     secret,
		merchantID: merchantID,
		terminalID: terminalID,
	}
}

// TransactionMac is the MAC over a 3-D Secure transaction tuple.
func (a *Authenticator) TransactionMac(xid string, amount int64, currency domain.Currency) string {
	return ComputeMac(a.secret, a.terminalID,
		xid,
		strconv.FormatInt(amount, 10),
		string(currency),
		a.merchantID,
	)
}

// VerifyTransaction recomputes the MAC for the tuple and compares it with the
// one received.
func (a *Authenticator) VerifyTransaction(xid string, amount int64, currency domain.Currency, received string) bool {
	return VerifyMac(a.TransactionMac(xid, amount, currency), received)
}
