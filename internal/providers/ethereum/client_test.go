package ethereum_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/mocks"
	"github.com/terrafield/landledger/internal/providers/ethereum"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOwner    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// abiWord left-pads b into a 32-byte ABI return word
func abiWord(b []byte) []byte {
	word := make([]byte, 32)
	copy(word[32-len(b):], b)
	return word
}

func TestOwnerOf(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the decoded owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		client.EXPECT().
			CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(abiWord(testOwner.Bytes()), nil)

		collaborator := ethereum.NewCollaborator(testContract, client)
		owner, err := collaborator.OwnerOf(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, testOwner, owner)
	})

	t.Run("maps nonexistent-token revert", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		client.EXPECT().
			CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(nil, errors.New("execution reverted: ERC721: owner query for nonexistent token"))

		collaborator := ethereum.NewCollaborator(testContract, client)
		_, err := collaborator.OwnerOf(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrNonexistentToken)
	})

	t.Run("zero-address owner is nonexistent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		client.EXPECT().
			CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(abiWord(nil), nil)

		collaborator := ethereum.NewCollaborator(testContract, client)
		_, err := collaborator.OwnerOf(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrNonexistentToken)
	})

	t.Run("retries transient RPC failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		gomock.InOrder(
			client.EXPECT().
				CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
				Return(nil, errors.New("connection reset by peer")),
			client.EXPECT().
				CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
				Return(abiWord(testOwner.Bytes()), nil),
		)

		collaborator := ethereum.NewCollaborator(testContract, client)
		owner, err := collaborator.OwnerOf(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, testOwner, owner)
	})

	t.Run("does not retry reverts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		client.EXPECT().
			CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(nil, errors.New("execution reverted: not a land token")).
			Times(1)

		collaborator := ethereum.NewCollaborator(testContract, client)
		_, err := collaborator.OwnerOf(ctx, 42)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNonexistentToken)
	})
}

func TestBalanceOf(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(abiWord([]byte{0x05}), nil)

	collaborator := ethereum.NewCollaborator(testContract, client)
	balance, err := collaborator.BalanceOf(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), balance)
}

func TestMintUnsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	collaborator := ethereum.NewCollaborator(testContract, mocks.NewMockEthClient(ctrl))
	err := collaborator.Mint(context.Background(), testOwner, 42)
	assert.ErrorIs(t, err, domain.ErrMintUnsupported)
}
