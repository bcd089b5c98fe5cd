package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/landledger/internal/domain"
)

// buildTestRecord creates a test land record
func buildTestRecord(tokenID uint64, attestor common.Address) *domain.LandRecord {
	return &domain.LandRecord{
		TokenID:      tokenID,
		DocumentHash: fmt.Sprintf("0x%064d", tokenID),
		Size:         35000,
		Attestor:     attestor,
	}
}

// buildTestAgreement creates a test agreement occupying the tenant's slot
func buildTestAgreement(tokenID uint64, owner, tenant common.Address, duration uint64) *domain.Agreement {
	return &domain.Agreement{
		AgreementTerms: domain.AgreementTerms{
			Purpose:  "grazing",
			Size:     1500,
			Duration: duration,
			Cost:     800,
			TokenID:  tokenID,
		},
		Owner:  owner,
		Tenant: tenant,
	}
}

// RunStoreTests runs the shared store test suite against any Store implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	ctx := context.Background()
	attestor := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tenant := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	t.Run("land records", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		// Missing record returns nil, not an error
		record, err := st.GetLandRecord(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, record)

		require.NoError(t, st.CreateLandRecord(ctx, buildTestRecord(1, attestor)))
		require.NoError(t, st.CreateLandRecord(ctx, buildTestRecord(2, attestor)))

		record, err = st.GetLandRecord(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, uint64(1), record.TokenID)
		assert.Equal(t, domain.Quantity(35000), record.Size)
		assert.Equal(t, attestor, record.Attestor)

		count, err := st.CountLandRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)
	})

	t.Run("document nonces", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		hash := "0xdeed0000000000000000000000000000000000000000000000000000000000aa"

		used, err := st.HasDocument(ctx, hash)
		require.NoError(t, err)
		assert.False(t, used)

		require.NoError(t, st.MarkDocumentUsed(ctx, hash))

		used, err = st.HasDocument(ctx, hash)
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("account properties", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		require.NoError(t, st.AppendAccountProperty(ctx, attestor, 10))
		require.NoError(t, st.AppendAccountProperty(ctx, attestor, 20))
		require.NoError(t, st.AppendAccountProperty(ctx, attestor, 30))

		// 0-based positions preserve insertion order
		for i, want := range []uint64{10, 20, 30} {
			tokenID, err := st.GetAccountProperty(ctx, attestor, uint64(i))
			require.NoError(t, err)
			require.NotNil(t, tokenID)
			assert.Equal(t, want, *tokenID)
		}

		tokenID, err := st.GetAccountProperty(ctx, attestor, 3)
		require.NoError(t, err)
		assert.Nil(t, tokenID)

		tokenID, err = st.GetAccountProperty(ctx, tenant, 0)
		require.NoError(t, err)
		assert.Nil(t, tokenID)
	})

	t.Run("active agreements", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		agreement, err := st.GetActiveAgreement(ctx, tenant)
		require.NoError(t, err)
		assert.Nil(t, agreement)

		require.NoError(t, st.PutActiveAgreement(ctx, buildTestAgreement(1, attestor, tenant, 1000)))

		agreement, err = st.GetActiveAgreement(ctx, tenant)
		require.NoError(t, err)
		require.NotNil(t, agreement)
		assert.Equal(t, uint64(1), agreement.TokenID)
		assert.Equal(t, "grazing", agreement.Purpose)

		// A tenant has one slot; a second put overwrites it
		replacement := buildTestAgreement(2, attestor, tenant, 2000)
		replacement.Purpose = "forestry"
		require.NoError(t, st.PutActiveAgreement(ctx, replacement))

		agreement, err = st.GetActiveAgreement(ctx, tenant)
		require.NoError(t, err)
		require.NotNil(t, agreement)
		assert.Equal(t, uint64(2), agreement.TokenID)
		assert.Equal(t, "forestry", agreement.Purpose)
	})

	t.Run("agreement history", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		first := buildTestAgreement(1, attestor, tenant, 1000)
		first.Fulfilled = true
		second := buildTestAgreement(1, attestor, tenant, 2000)
		second.Fulfilled = true

		idx, err := st.AppendTenantHistory(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), idx)

		idx, err = st.AppendTenantHistory(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), idx)

		idx, err = st.AppendPropertyHistory(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), idx)

		count, err := st.TenantHistoryCount(ctx, tenant)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)

		count, err = st.PropertyHistoryCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)

		archived, err := st.TenantHistoryAt(ctx, tenant, 2)
		require.NoError(t, err)
		require.NotNil(t, archived)
		assert.Equal(t, uint64(2000), archived.Duration)

		archived, err = st.PropertyHistoryAt(ctx, 1, 1)
		require.NoError(t, err)
		require.NotNil(t, archived)
		assert.Equal(t, uint64(1000), archived.Duration)

		// Indexes are 1-based; 0 and past-the-end resolve to nothing
		archived, err = st.TenantHistoryAt(ctx, tenant, 0)
		require.NoError(t, err)
		assert.Nil(t, archived)

		archived, err = st.TenantHistoryAt(ctx, tenant, 3)
		require.NoError(t, err)
		assert.Nil(t, archived)

		archived, err = st.PropertyHistoryAt(ctx, 99, 1)
		require.NoError(t, err)
		assert.Nil(t, archived)
	})

	t.Run("elapsed agreements", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		otherTenant := common.HexToAddress("0x00000000000000000000000000000000000000b2")
		thirdTenant := common.HexToAddress("0x00000000000000000000000000000000000000b3")

		elapsed := buildTestAgreement(1, attestor, tenant, 500)
		running := buildTestAgreement(2, attestor, otherTenant, 5000)
		fulfilled := buildTestAgreement(3, attestor, thirdTenant, 500)
		fulfilled.Size = 0
		fulfilled.Fulfilled = true

		require.NoError(t, st.PutActiveAgreement(ctx, elapsed))
		require.NoError(t, st.PutActiveAgreement(ctx, running))
		require.NoError(t, st.PutActiveAgreement(ctx, fulfilled))

		list, err := st.ListElapsedAgreements(ctx, 1000, 100)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, tenant, list[0].Tenant)

		// Limit caps the batch
		list, err = st.ListElapsedAgreements(ctx, 1000, 0)
		require.NoError(t, err)
		assert.Empty(t, list)

		// An agreement expiring exactly now has not elapsed yet
		list, err = st.ListElapsedAgreements(ctx, 500, 100)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("rights pools", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		pool, err := st.GetRightsPool(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, pool)

		require.NoError(t, st.PutRightsPool(ctx, 1, domain.RightsPool{Remaining: 35000, Claimed: true}))

		pool, err = st.GetRightsPool(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, pool)
		assert.Equal(t, domain.Quantity(35000), pool.Remaining)
		assert.True(t, pool.Claimed)

		require.NoError(t, st.PutRightsPool(ctx, 1, domain.RightsPool{Remaining: 20000, Claimed: true}))

		pool, err = st.GetRightsPool(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, pool)
		assert.Equal(t, domain.Quantity(20000), pool.Remaining)
	})

	t.Run("transferred rights", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		quantity, err := st.GetTransferred(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.Quantity(0), quantity)

		require.NoError(t, st.SetTransferred(ctx, 1, 1500))

		quantity, err = st.GetTransferred(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.Quantity(1500), quantity)
	})

	t.Run("transaction commits together", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		err := st.WithTransaction(ctx, func(tx Store) error {
			if err := tx.CreateLandRecord(ctx, buildTestRecord(1, attestor)); err != nil {
				return err
			}
			return tx.MarkDocumentUsed(ctx, "0xaa")
		})
		require.NoError(t, err)

		record, err := st.GetLandRecord(ctx, 1)
		require.NoError(t, err)
		assert.NotNil(t, record)

		used, err := st.HasDocument(ctx, "0xaa")
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		boom := errors.New("boom")
		err := st.WithTransaction(ctx, func(tx Store) error {
			if err := tx.CreateLandRecord(ctx, buildTestRecord(1, attestor)); err != nil {
				return err
			}
			if err := tx.MarkDocumentUsed(ctx, "0xbb"); err != nil {
				return err
			}
			if err := tx.AppendAccountProperty(ctx, attestor, 1); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		record, err := st.GetLandRecord(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, record)

		used, err := st.HasDocument(ctx, "0xbb")
		require.NoError(t, err)
		assert.False(t, used)

		tokenID, err := st.GetAccountProperty(ctx, attestor, 0)
		require.NoError(t, err)
		assert.Nil(t, tokenID)
	})
}

// TestMemoryStore runs the shared suite against the in-memory store
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}
