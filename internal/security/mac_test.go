package security_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/security"
)

func TestHash(t *testing.T) {
	sum := sha256.Sum256([]byte("abc"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), security.Hash("abc"))
}

func TestComputeMac_ChainsTerminalSecret(t *testing.T) {
	firstHash := security.Hash("10,10,10,10,10,10,10,10;67005551")
	want := security.Hash("ORD001;15050;TL;6706598320;" + firstHash)

	got := security.ComputeMac("10,10,10,10,10,10,10,10", "67005551", "ORD001", "15050", "TL", "6706598320")

	assert.Equal(t, want, got)
}

func TestComputeMac_DependsOnEveryInput(t *testing.T) {
	base := security.ComputeMac("secret", "67005551", "ORD001", "15050", "TL", "6706598320")

	assert.NotEqual(t, base, security.ComputeMac("other", "67005551", "ORD001", "15050", "TL", "6706598320"))
	assert.NotEqual(t, base, security.ComputeMac("secret", "67005552", "ORD001", "15050", "TL", "6706598320"))
	assert.NotEqual(t, base, security.ComputeMac("secret", "67005551", "ORD002", "15050", "TL", "6706598320"))
	assert.NotEqual(t, base, security.ComputeMac("secret", "67005551", "ORD001", "15051", "TL", "6706598320"))
	assert.NotEqual(t, base, security.ComputeMac("secret", "67005551", "ORD001", "15050", "US", "6706598320"))
}

func TestVerifyMac(t *testing.T) {
	mac := security.ComputeMac("secret", "67005551", "ORD001", "15050", "TL", "6706598320")

	t.Run("identical", func(t *testing.T) {
		assert.True(t, security.VerifyMac(mac, mac))
		assert.True(t, security.VerifyMac("x", "x"))
	})

	t.Run("differs at any position", func(t *testing.T) {
		for i := range len(mac) {
			tampered := []byte(mac)
			tampered[i] ^= 0x01
			assert.False(t, security.VerifyMac(mac, string(tampered)), "position %d", i)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.False(t, security.VerifyMac(mac, mac[:len(mac)-1]))
		assert.False(t, security.VerifyMac(mac, mac+"="))
	})

	t.Run("empty never verifies", func(t *testing.T) {
		assert.False(t, security.VerifyMac("", ""))
		assert.False(t, security.VerifyMac(mac, ""))
		assert.False(t, security.VerifyMac("", mac))
	})
}

func TestAuthenticator(t *testing.T) {
	auth := security.NewAuthenticator("secret", "6706598320", "67005551")

	mac := auth.TransactionMac("ORD001", 15050, domain.CurrencyTL)
	assert.Equal(t, security.ComputeMac("secret", "67005551", "ORD001", "15050", "TL", "6706598320"), mac)

	assert.True(t, auth.VerifyTransaction("ORD001", 15050, domain.CurrencyTL, mac))
	assert.False(t, auth.VerifyTransaction("ORD001", 15051, domain.CurrencyTL, mac))
	assert.False(t, auth.VerifyTransaction("ORD001", 15050, domain.CurrencyTL, ""))
}
