package registry_test

import (
	"context"
	"crypto/ecdsa"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/logger"
	"github.com/terrafield/landledger/internal/mocks"
	"github.com/terrafield/landledger/internal/registry"
	"github.com/terrafield/landledger/internal/signature"
	"github.com/terrafield/landledger/internal/store"
	"github.com/terrafield/landledger/internal/token"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

const testDocumentHash = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func signAttestation(t *testing.T, key *ecdsa.PrivateKey, tokenID uint64, documentHash string, size domain.Quantity) []byte {
	t.Helper()
	digest := signature.AttestationDigest(tokenID, documentHash, size)
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	return sig
}

type registryFixture struct {
	registry  registry.TitleRegistry
	store     store.Store
	tokens    token.Collaborator
	publisher *mocks.MockPublisher
	clock     *mocks.MockClock
}

func newRegistryFixture(t *testing.T) *registryFixture {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1700000000, 0)).AnyTimes()

	st := store.NewMemoryStore()
	tokens := token.NewMemoryLedger()
	return &registryFixture{
		registry:  registry.New(st, tokens, publisher, clock),
		store:     st,
		tokens:    tokens,
		publisher: publisher,
		clock:     clock,
	}
}

func TestAttestProperty(t *testing.T) {
	ctx := context.Background()

	t.Run("registers title and mints token", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		sig := signAttestation(t, key, 1, testDocumentHash, 35000)

		f.publisher.EXPECT().
			PublishEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, event *domain.ProtocolEvent) error {
				assert.True(t, event.Valid())
				assert.Equal(t, domain.EventTypeAttestation, event.Type)
				assert.Equal(t, uint64(1), event.Attestation.TokenID)
				assert.Equal(t, addr, event.Attestation.Attestor)
				assert.Equal(t, "acre", event.Attestation.Unit)
				return nil
			})

		record, err := f.registry.AttestProperty(ctx, addr, 1, testDocumentHash, 35000, "acre", sig)
		require.NoError(t, err)
		assert.Equal(t, addr, record.Attestor)
		assert.Equal(t, domain.Quantity(35000), record.Size)

		owner, err := f.tokens.OwnerOf(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, addr, owner)

		size, err := f.registry.TitleSize(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.Quantity(35000), size)
	})

	t.Run("rejects reused document hash", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		f.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)

		sig := signAttestation(t, key, 1, testDocumentHash, 100)
		_, err := f.registry.AttestProperty(ctx, addr, 1, testDocumentHash, 100, "", sig)
		require.NoError(t, err)

		// Same document under a fresh tokenID, even from the same signer
		sig = signAttestation(t, key, 2, testDocumentHash, 100)
		_, err = f.registry.AttestProperty(ctx, addr, 2, testDocumentHash, 100, "", sig)
		assert.ErrorIs(t, err, domain.ErrDuplicateDocument)

		// The failed attestation must leave no trace
		_, err = f.tokens.OwnerOf(ctx, 2)
		assert.ErrorIs(t, err, domain.ErrNonexistentToken)
	})

	t.Run("rejects signer other than caller", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, _ := newKey(t)
		_, other := newKey(t)

		sig := signAttestation(t, key, 1, testDocumentHash, 100)
		_, err := f.registry.AttestProperty(ctx, other, 1, testDocumentHash, 100, "", sig)
		assert.ErrorIs(t, err, domain.ErrSignerMismatch)
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)

		// Signature covers size 100 but the submission declares 200, so
		// recovery yields some other address and the caller check fails
		sig := signAttestation(t, key, 1, testDocumentHash, 100)
		_, err := f.registry.AttestProperty(ctx, addr, 1, testDocumentHash, 200, "", sig)
		assert.ErrorIs(t, err, domain.ErrSignerMismatch)
	})

	t.Run("rejects malformed signature before touching state", func(t *testing.T) {
		f := newRegistryFixture(t)
		_, addr := newKey(t)

		_, err := f.registry.AttestProperty(ctx, addr, 1, testDocumentHash, 100, "", []byte{0x01, 0x02})
		assert.ErrorIs(t, err, domain.ErrInvalidSignatureLength)

		used, err := f.store.HasDocument(ctx, testDocumentHash)
		require.NoError(t, err)
		assert.False(t, used)
	})

	t.Run("rolls back store writes when mint fails", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)

		// Occupy tokenID 7 out of band so the registry's mint collides
		require.NoError(t, f.tokens.Mint(ctx, addr, 7))

		sig := signAttestation(t, key, 7, testDocumentHash, 100)
		_, err := f.registry.AttestProperty(ctx, addr, 7, testDocumentHash, 100, "", sig)
		assert.ErrorIs(t, err, domain.ErrTokenAlreadyMinted)

		used, err := f.store.HasDocument(ctx, testDocumentHash)
		require.NoError(t, err)
		assert.False(t, used, "document hash must be reusable after rollback")

		record, err := f.store.GetLandRecord(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("commits even when event publication fails", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		f.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(assert.AnError)

		sig := signAttestation(t, key, 1, testDocumentHash, 100)
		_, err := f.registry.AttestProperty(ctx, addr, 1, testDocumentHash, 100, "", sig)
		require.NoError(t, err)

		size, err := f.registry.TitleSize(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.Quantity(100), size)
	})
}

func TestClaimOwnership(t *testing.T) {
	ctx := context.Background()

	attest := func(t *testing.T, f *registryFixture, key *ecdsa.PrivateKey, addr common.Address, tokenID uint64) {
		t.Helper()
		f.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)
		sig := signAttestation(t, key, tokenID, testDocumentHash, 500)
		_, err := f.registry.AttestProperty(ctx, addr, tokenID, testDocumentHash, 500, "", sig)
		require.NoError(t, err)
	}

	t.Run("attestor claim succeeds", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		attest(t, f, key, addr, 1)

		sig := signAttestation(t, key, 1, testDocumentHash, 500)
		ok, err := f.registry.ClaimOwnership(ctx, addr, 1, sig)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("non-attestor claim is false", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		attest(t, f, key, addr, 1)

		otherKey, otherAddr := newKey(t)
		sig := signAttestation(t, otherKey, 1, testDocumentHash, 500)
		ok, err := f.registry.ClaimOwnership(ctx, otherAddr, 1, sig)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stolen signature does not authenticate the caller", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		attest(t, f, key, addr, 1)

		_, thief := newKey(t)
		sig := signAttestation(t, key, 1, testDocumentHash, 500)
		ok, err := f.registry.ClaimOwnership(ctx, thief, 1, sig)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown title", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		sig := signAttestation(t, key, 9, testDocumentHash, 500)
		_, err := f.registry.ClaimOwnership(ctx, addr, 9, sig)
		assert.ErrorIs(t, err, domain.ErrNonexistentTitle)
	})

	t.Run("malformed signature", func(t *testing.T) {
		f := newRegistryFixture(t)
		key, addr := newKey(t)
		attest(t, f, key, addr, 1)

		_, err := f.registry.ClaimOwnership(ctx, addr, 1, make([]byte, 64))
		assert.ErrorIs(t, err, domain.ErrInvalidSignatureLength)
	})
}

func TestAccountProperty(t *testing.T) {
	ctx := context.Background()
	f := newRegistryFixture(t)
	key, addr := newKey(t)

	hashes := []string{"QmDocA", "QmDocB", "QmDocC"}
	for i, h := range hashes {
		tokenID := uint64(i + 10)
		f.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)
		digest := signature.AttestationDigest(tokenID, h, 100)
		sig, err := crypto.Sign(digest.Bytes(), key)
		require.NoError(t, err)
		_, err = f.registry.AttestProperty(ctx, addr, tokenID, h, 100, "", sig)
		require.NoError(t, err)
	}

	for i := range hashes {
		tokenID, err := f.registry.AccountProperty(ctx, addr, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i+10), tokenID)
	}

	_, err := f.registry.AccountProperty(ctx, addr, 3)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	_, stranger := newKey(t)
	_, err = f.registry.AccountProperty(ctx, stranger, 0)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestRegistryCounts(t *testing.T) {
	ctx := context.Background()
	f := newRegistryFixture(t)

	total, err := f.registry.TotalLands(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	keyA, addrA := newKey(t)
	keyB, addrB := newKey(t)
	f.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	for i, k := range []struct {
		key  *ecdsa.PrivateKey
		addr common.Address
		hash string
	}{
		{keyA, addrA, "QmDocA"},
		{keyA, addrA, "QmDocB"},
		{keyB, addrB, "QmDocC"},
	} {
		tokenID := uint64(i + 1)
		digest := signature.AttestationDigest(tokenID, k.hash, 100)
		sig, err := crypto.Sign(digest.Bytes(), k.key)
		require.NoError(t, err)
		_, err = f.registry.AttestProperty(ctx, k.addr, tokenID, k.hash, 100, "", sig)
		require.NoError(t, err)
	}

	total, err = f.registry.TotalLands(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	count, err := f.registry.LandCount(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	count, err = f.registry.LandCount(ctx, addrB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
