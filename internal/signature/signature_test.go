package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/signature"
)

func signDigest(t *testing.T, digest common.Hash) (common.Address, []byte) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey), sig
}

func TestAttestationDigest(t *testing.T) {
	t.Run("deterministic for identical fields", func(t *testing.T) {
		a := signature.AttestationDigest(32012223, "QmTitleDoc789", 3500)
		b := signature.AttestationDigest(32012223, "QmTitleDoc789", 3500)
		assert.Equal(t, a, b)
	})

	t.Run("any field change produces a different digest", func(t *testing.T) {
		base := signature.AttestationDigest(32012223, "QmTitleDoc789", 3500)
		assert.NotEqual(t, base, signature.AttestationDigest(32012224, "QmTitleDoc789", 3500))
		assert.NotEqual(t, base, signature.AttestationDigest(32012223, "QmTitleDoc790", 3500))
		assert.NotEqual(t, base, signature.AttestationDigest(32012223, "QmTitleDoc789", 3501))
	})
}

func TestAgreementDigest(t *testing.T) {
	terms := domain.AgreementTerms{
		Purpose:  "seasonal grazing",
		Size:     1500,
		Duration: 1767225600,
		Cost:     250,
		TokenID:  32012223,
	}

	t.Run("deterministic for identical terms", func(t *testing.T) {
		assert.Equal(t, signature.AgreementDigest(terms), signature.AgreementDigest(terms))
	})

	t.Run("sensitive to every field", func(t *testing.T) {
		base := signature.AgreementDigest(terms)

		mutations := []func(*domain.AgreementTerms){
			func(m *domain.AgreementTerms) { m.Purpose = "seasonal grazinG" },
			func(m *domain.AgreementTerms) { m.Size = 1501 },
			func(m *domain.AgreementTerms) { m.Duration = 1767225601 },
			func(m *domain.AgreementTerms) { m.Cost = 251 },
			func(m *domain.AgreementTerms) { m.TokenID = 32012224 },
		}
		for _, mutate := range mutations {
			altered := terms
			mutate(&altered)
			assert.NotEqual(t, base, signature.AgreementDigest(altered))
		}
	})
}

func TestRecoverSigner(t *testing.T) {
	digest := signature.AgreementDigest(domain.AgreementTerms{
		Purpose:  "orchard lease",
		Size:     2000,
		Duration: 1767225600,
		Cost:     100,
		TokenID:  42,
	})

	t.Run("round-trips the signing address", func(t *testing.T) {
		addr, sig := signDigest(t, digest)

		recovered, err := signature.RecoverSigner(digest, sig)
		require.NoError(t, err)
		assert.Equal(t, addr, recovered)
	})

	t.Run("normalizes a 27-offset recovery id", func(t *testing.T) {
		addr, sig := signDigest(t, digest)
		sig[64] += 27

		recovered, err := signature.RecoverSigner(digest, sig)
		require.NoError(t, err)
		assert.Equal(t, addr, recovered)
	})

	t.Run("altered payload recovers a different address, not an error", func(t *testing.T) {
		addr, sig := signDigest(t, digest)

		other := signature.AgreementDigest(domain.AgreementTerms{
			Purpose:  "orchard lease",
			Size:     2001,
			Duration: 1767225600,
			Cost:     100,
			TokenID:  42,
		})
		recovered, err := signature.RecoverSigner(other, sig)
		require.NoError(t, err)
		assert.NotEqual(t, addr, recovered)
	})

	t.Run("out-of-range recovery id yields the zero address", func(t *testing.T) {
		_, sig := signDigest(t, digest)
		sig[64] = 29

		recovered, err := signature.RecoverSigner(digest, sig)
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, recovered)
	})

	t.Run("rejects signatures that are not 65 bytes", func(t *testing.T) {
		for _, length := range []int{0, 1, 64, 66, 130} {
			_, err := signature.RecoverSigner(digest, make([]byte, length))
			assert.ErrorIs(t, err, domain.ErrInvalidSignatureLength)
		}
	})
}
