package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xgr-network/xgr-keymanager/storage/memory"
	"github.com/xgr-network/xgr-keymanager/types"
)

func TestMetaRoundTrip(t *testing.T) {
	t.Parallel()

	kv := memory.NewMemoryKV()
	account := types.StringToAddress("0xacc0000000000000000000000000000000000001")

	require.NoError(t, WriteMeta(kv, account, 1789))

	gotAccount, gotChainID, err := ReadMeta(kv)
	require.NoError(t, err)
	assert.Equal(t, account, gotAccount)
	assert.Equal(t, uint64(1789), gotChainID)
}

func TestReadMetaUninitialized(t *testing.T) {
	t.Parallel()

	_, _, err := ReadMeta(memory.NewMemoryKV())
	assert.ErrorContains(t, err, "not initialized")
}

func TestBuildGateway(t *testing.T) {
	t.Parallel()

	kv := memory.NewMemoryKV()
	account := types.StringToAddress("0xacc0000000000000000000000000000000000002")

	require.NoError(t, WriteMeta(kv, account, 7))

	gateway, host, err := BuildGateway(kv)
	require.NoError(t, err)
	require.NotNil(t, gateway)
	assert.Equal(t, account, host.Address())
	assert.Equal(t, uint64(7), host.ChainID())
}
