package keymanager

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/state"
	"github.com/xgr-network/xgr-keymanager/storage/memory"
	"github.com/xgr-network/xgr-keymanager/types"
)

// testHost backs the gateway with a state.Txn over an in-memory KV and
// records every call it is asked to execute.
type testHost struct {
	address   types.Address
	chainID   uint64
	txn       *state.Txn
	standards map[types.Address]map[[4]byte]struct{}
	calls     []*CallOp
	handler   func(op *CallOp) ([]byte, error)
}

func newTestHost() *testHost {
	return &testHost{
		address:   types.StringToAddress("0xaccccccccccccccccccccccccccccccccccccccc"),
		chainID:   1789,
		txn:       state.NewTxn(memory.NewMemoryKV()),
		standards: map[types.Address]map[[4]byte]struct{}{},
	}
}

func (h *testHost) Address() types.Address { return h.address }
func (h *testHost) ChainID() uint64        { return h.chainID }

func (h *testHost) GetData(key []byte) ([]byte, error) {
	value, _, err := h.txn.Get(key)

	return value, err
}

func (h *testHost) SetData(key, value []byte) error {
	if len(value) == 0 {
		h.txn.Delete(key)
	} else {
		h.txn.Set(key, value)
	}

	return nil
}

func (h *testHost) ExecuteCall(op *CallOp) ([]byte, error) {
	h.calls = append(h.calls, op)

	if h.handler != nil {
		return h.handler(op)
	}

	return nil, nil
}

func (h *testHost) SupportsStandard(target types.Address, id [4]byte) bool {
	_, ok := h.standards[target][id]

	return ok
}

func (h *testHost) Snapshot() int                 { return h.txn.Snapshot() }
func (h *testHost) RevertToSnapshot(snapshot int) { h.txn.RevertToSnapshot(snapshot) }
func (h *testHost) Commit() error                 { return h.txn.Commit() }

func (h *testHost) grant(t *testing.T, controller types.Address, mask Permission) {
	t.Helper()

	key := schema.PermissionsKey(controller)
	require.NoError(t, h.SetData(key[:], EncodePermissions(mask)))
}

func (h *testHost) setAllowedCalls(t *testing.T, controller types.Address, list AllowedCalls) {
	t.Helper()

	key := schema.AllowedCallsKey(controller)
	require.NoError(t, h.SetData(key[:], list.Encode()))
}

func (h *testHost) setAllowedDataKeys(t *testing.T, controller types.Address, list AllowedDataKeys) {
	t.Helper()

	key := schema.AllowedDataKeysKey(controller)
	require.NoError(t, h.SetData(key[:], list.Encode()))
}

var (
	alice   = types.StringToAddress("0xa11ce00000000000000000000000000000000001")
	bob     = types.StringToAddress("0xb0b0000000000000000000000000000000000002")
	targetX = types.StringToAddress("0x7a26e700000000000000000000000000000000aa")
)

func newTestGateway() (*KeyManager, *testHost) {
	host := newTestHost()

	return New(host, nil), host
}

func TestExecuteNoPermissionsSet(t *testing.T) {
	t.Parallel()

	km, _ := newTestGateway()

	payload := EncodeExecute(execOpCall, targetX, big.NewInt(1), nil)

	_, err := km.Execute(alice, nil, payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthorizationDenied))

	var npe *NoPermissionsSetError

	require.True(t, errors.As(err, &npe))
	assert.Equal(t, alice, npe.Address)
}

func TestExecuteTopUpNeedsNoPermission(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()

	_, err := km.Execute(alice, big.NewInt(500), nil)
	require.NoError(t, err)
	assert.Empty(t, host.calls)
}

func TestExecuteTransferValueAllowList(t *testing.T) {
	t.Parallel()

	payload := EncodeExecute(execOpCall, targetX, big.NewInt(10), nil)

	t.Run("no allow-list configured", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionTransferValue)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAllowListDenied))
	})

	t.Run("target listed", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionTransferValue)
		host.setAllowedCalls(t, alice, AllowedCalls{
			{CallTypes: CallTypeTransferValue, Target: targetX},
		})

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)

		require.Len(t, host.calls, 1)
		assert.Equal(t, OpTransferValue, host.calls[0].Kind)
		assert.Equal(t, targetX, host.calls[0].Target)
	})

	t.Run("different target denied", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionTransferValue)
		host.setAllowedCalls(t, alice, AllowedCalls{
			{CallTypes: CallTypeTransferValue, Target: bob},
		})

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAllowListDenied))
	})

	t.Run("super bypasses allow-list", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperTransferValue)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
		require.Len(t, host.calls, 1)
	})
}

func TestExecuteCallWithValueNeedsBothCapabilities(t *testing.T) {
	t.Parallel()

	payload := EncodeExecute(execOpCall, targetX, big.NewInt(10), []byte{1, 2, 3, 4})

	t.Run("missing transfer bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperCall)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionTransferValue, nae.Missing)
	})

	t.Run("one entry must cover both call types", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionCall|PermissionTransferValue)
		host.setAllowedCalls(t, alice, AllowedCalls{
			{CallTypes: CallTypeCall, Target: targetX},
			{CallTypes: CallTypeTransferValue, Target: targetX},
		})

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAllowListDenied))

		host.setAllowedCalls(t, alice, AllowedCalls{
			{CallTypes: CallTypeCall | CallTypeTransferValue, Target: targetX},
		})

		_, err = km.Execute(alice, nil, payload)
		require.NoError(t, err)
	})

	t.Run("both super", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperCall|PermissionSuperTransferValue)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
		require.Len(t, host.calls, 1)
		assert.Equal(t, OpCall, host.calls[0].Kind)
	})
}

func TestExecuteStaticCall(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()
	host.grant(t, alice, PermissionStaticCall)
	host.setAllowedCalls(t, alice, AllowedCalls{
		{CallTypes: CallTypeStaticCall, Target: targetX},
	})

	payload := EncodeExecute(execOpStaticCall, targetX, nil, []byte{1, 2, 3, 4})

	_, err := km.Execute(alice, nil, payload)
	require.NoError(t, err)
	require.Len(t, host.calls, 1)
	assert.Equal(t, OpStaticCall, host.calls[0].Kind)
}

func TestExecuteDelegateCallAlwaysDenied(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()
	// even the explicit delegate bits do not open the door
	host.grant(t, alice, AllPermissions|PermissionDelegateCall|PermissionSuperDelegateCall)

	payload := EncodeExecute(execOpDelegateCall, targetX, nil, []byte{1, 2, 3, 4})

	_, err := km.Execute(alice, nil, payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDelegateCallDisallowed))
	assert.Empty(t, host.calls)
}

func TestExecuteDeploy(t *testing.T) {
	t.Parallel()

	payload := EncodeExecute(execOpCreate, types.ZeroAddress, nil, []byte{0x60, 0x80})

	t.Run("requires deploy bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionCall)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionDeploy, nae.Missing)
	})

	t.Run("no allow-list applies", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionDeploy)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
		require.Len(t, host.calls, 1)
		assert.Equal(t, OpDeploy, host.calls[0].Kind)
	})
}

func TestExecuteSetDataGeneric(t *testing.T) {
	t.Parallel()

	key := types.StringToHash("0x4b4b000000000000000000000000000000000000000000000000000000000001")
	payload := EncodeSetData(key, []byte{0x42})

	t.Run("prefix covered", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSetData)
		host.setAllowedDataKeys(t, alice, AllowedDataKeys{{0x4b, 0x4b}})

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)

		stored, err := host.GetData(key[:])
		require.NoError(t, err)
		assert.Equal(t, []byte{0x42}, stored)
	})

	t.Run("prefix not covered", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSetData)
		host.setAllowedDataKeys(t, alice, AllowedDataKeys{{0xff}})

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAllowListDenied))
	})

	t.Run("no list configured denies", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSetData)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAllowListDenied))
	})

	t.Run("super skips the list", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperSetData)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
	})
}

func TestExecuteSetDataBatchShortCircuits(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()
	host.grant(t, alice, PermissionSetData)
	host.setAllowedDataKeys(t, alice, AllowedDataKeys{{0x4b}})

	allowed := types.StringToHash("0x4b01000000000000000000000000000000000000000000000000000000000000")
	denied := types.StringToHash("0x7c01000000000000000000000000000000000000000000000000000000000000")

	payload := EncodeSetDataBatch(
		[]types.Hash{allowed, denied},
		[][]byte{{0x01}, {0x02}},
	)

	_, err := km.Execute(alice, nil, payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllowListDenied))

	// nothing from the batch landed
	stored, err := host.GetData(allowed[:])
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAddControllerVersusEditPermissions(t *testing.T) {
	t.Parallel()

	grantKey := schema.PermissionsKey(bob)
	grantPayload := EncodeSetData(grantKey, EncodePermissions(PermissionCall))

	t.Run("adding with edit bit denied", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionEditPermissions)

		_, err := km.Execute(alice, nil, grantPayload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionAddController, nae.Missing)
	})

	t.Run("adding with add bit appends to the registry", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddController)

		_, err := km.Execute(alice, nil, grantPayload)
		require.NoError(t, err)

		store := newStore(host)

		count, err := store.ControllerCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)

		at, err := store.ControllerAt(0)
		require.NoError(t, err)
		assert.Equal(t, bob, at)
	})

	t.Run("editing existing with add bit denied", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddController)
		host.grant(t, bob, PermissionStaticCall)

		_, err := km.Execute(alice, nil, grantPayload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionEditPermissions, nae.Missing)
	})

	t.Run("present with zero mask counts as absent", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddController)

		// a raw zero-mask entry, as legacy data might hold it
		key := schema.PermissionsKey(bob)
		require.NoError(t, host.SetData(key[:], make([]byte, 32)))

		_, err := km.Execute(alice, nil, grantPayload)
		require.NoError(t, err)
	})

	t.Run("revoking tombstones the registry slot", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddController|PermissionEditPermissions)

		_, err := km.Execute(alice, nil, grantPayload)
		require.NoError(t, err)

		revoke := EncodeSetData(grantKey, nil)

		_, err = km.Execute(alice, nil, revoke)
		require.NoError(t, err)

		store := newStore(host)

		count, err := store.ControllerCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count, "slots are never renumbered")

		at, err := store.ControllerAt(0)
		require.NoError(t, err)
		assert.Equal(t, types.ZeroAddress, at)
	})
}

func TestSetDataAllowListValidation(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()
	host.grant(t, alice, PermissionEditPermissions)

	key := schema.AllowedCallsKey(bob)

	// fully wildcarded entry must be rejected at write time
	bad := make([]byte, 34)
	bad[1] = 32
	bad[5] = byte(CallTypeCall)

	_, err := km.Execute(alice, nil, EncodeSetData(key, bad))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))

	good := (AllowedCalls{{CallTypes: CallTypeCall, Target: targetX}}).Encode()

	_, err = km.Execute(alice, nil, EncodeSetData(key, good))
	require.NoError(t, err)
}

func TestSetDataURDMapping(t *testing.T) {
	t.Parallel()

	typeID := types.StringToHash("0x77d7000000000000000000000000000000000000000000000000000000000001")
	urdKey := schema.URDKey(typeID)
	payload := EncodeSetData(urdKey, targetX.Bytes())

	t.Run("installing needs the add bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddURD)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)

		stored, err := host.GetData(urdKey[:])
		require.NoError(t, err)
		assert.Equal(t, targetX.Bytes(), stored)
	})

	t.Run("the change bit does not install", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeURD)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionAddURD, nae.Missing)
	})

	t.Run("replacing needs the change bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeURD)
		require.NoError(t, host.SetData(urdKey[:], bob.Bytes()))

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
	})

	t.Run("the add bit does not replace", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddURD)
		require.NoError(t, host.SetData(urdKey[:], bob.Bytes()))

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionChangeURD, nae.Missing)
	})

	t.Run("SETDATA alone never reaches a URD key", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperSetData)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAuthorizationDenied))
	})
}

func TestSetDataExtensionMapping(t *testing.T) {
	t.Parallel()

	extKey := schema.ExtensionKey([4]byte{0xca, 0xfe, 0xba, 0xbe})
	payload := EncodeSetData(extKey, targetX.Bytes())

	t.Run("installing needs the add bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddExtensions)

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)

		stored, err := host.GetData(extKey[:])
		require.NoError(t, err)
		assert.Equal(t, targetX.Bytes(), stored)
	})

	t.Run("installing with only the change bit fails", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeExtensions)

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionAddExtensions, nae.Missing)
	})

	t.Run("replacing needs the change bit", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeExtensions)
		require.NoError(t, host.SetData(extKey[:], bob.Bytes()))

		_, err := km.Execute(alice, nil, payload)
		require.NoError(t, err)
	})

	t.Run("replacing with only the add bit fails", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionAddExtensions)
		require.NoError(t, host.SetData(extKey[:], bob.Bytes()))

		_, err := km.Execute(alice, nil, payload)
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionChangeExtensions, nae.Missing)
	})
}

func TestSetDataOwnerKeys(t *testing.T) {
	t.Parallel()

	t.Run("owner key needs CHANGEOWNER", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeOwner)

		_, err := km.Execute(alice, nil, EncodeSetData(schema.OwnerKey, bob.Bytes()))
		require.NoError(t, err)

		store := newStore(host)

		owner, err := store.Owner()
		require.NoError(t, err)
		assert.Equal(t, bob, owner)
	})

	t.Run("pending owner key needs CHANGEOWNER", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionChangeOwner)

		_, err := km.Execute(alice, nil, EncodeSetData(schema.PendingOwnerKey, bob.Bytes()))
		require.NoError(t, err)
	})

	t.Run("SUPER_SETDATA is not enough", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperSetData)

		_, err := km.Execute(alice, nil, EncodeSetData(schema.OwnerKey, bob.Bytes()))
		require.Error(t, err)

		var nae *NotAuthorisedError

		require.True(t, errors.As(err, &nae))
		assert.Equal(t, PermissionChangeOwner, nae.Missing)

		stored, err := host.GetData(schema.OwnerKey[:])
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}

func TestOwnershipHandover(t *testing.T) {
	t.Parallel()

	km, host := newTestGateway()
	host.grant(t, alice, PermissionChangeOwner)
	host.grant(t, bob, PermissionChangeOwner)

	t.Run("transfer requires the bit", func(t *testing.T) {
		km2, host2 := newTestGateway()
		host2.grant(t, alice, PermissionCall)

		_, err := km2.Execute(alice, nil, EncodeTransferOwnership(bob))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAuthorizationDenied))
	})

	_, err := km.Execute(alice, nil, EncodeTransferOwnership(bob))
	require.NoError(t, err)

	store := newStore(host)

	pending, err := store.PendingOwner()
	require.NoError(t, err)
	assert.Equal(t, bob, pending)

	// only the pending owner may accept
	_, err = km.Execute(alice, nil, EncodeAcceptOwnership())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthorizationDenied))

	_, err = km.Execute(bob, nil, EncodeAcceptOwnership())
	require.NoError(t, err)

	owner, err := store.Owner()
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	pending, err = store.PendingOwner()
	require.NoError(t, err)
	assert.Equal(t, types.ZeroAddress, pending)
}

func TestExecuteBatch(t *testing.T) {
	t.Parallel()

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()

		km, _ := newTestGateway()

		_, err := km.ExecuteBatch(alice, big.NewInt(0),
			[]*big.Int{big.NewInt(0)}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStructural))
	})

	t.Run("value sum must match attached exactly", func(t *testing.T) {
		t.Parallel()

		km, _ := newTestGateway()

		values := []*big.Int{big.NewInt(3), big.NewInt(4)}
		payloads := [][]byte{nil, nil}

		_, err := km.ExecuteBatch(alice, big.NewInt(6), values, payloads)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient value")

		_, err = km.ExecuteBatch(alice, big.NewInt(8), values, payloads)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "excessive value")

		_, err = km.ExecuteBatch(alice, big.NewInt(7), values, payloads)
		require.NoError(t, err)
	})

	t.Run("negative declared value is rejected", func(t *testing.T) {
		t.Parallel()

		km, _ := newTestGateway()

		// -5 + 12 = 7; the entries must not be allowed to cancel out
		values := []*big.Int{big.NewInt(-5), big.NewInt(12)}
		payloads := [][]byte{nil, nil}

		_, err := km.ExecuteBatch(alice, big.NewInt(7), values, payloads)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStructural))
		assert.Contains(t, err.Error(), "negative value")
	})

	t.Run("atomicity on a denied entry", func(t *testing.T) {
		t.Parallel()

		km, host := newTestGateway()
		host.grant(t, alice, PermissionSuperSetData)
		require.NoError(t, host.Commit())

		key := types.StringToHash("0x4b01000000000000000000000000000000000000000000000000000000000000")

		payloads := [][]byte{
			EncodeSetData(key, []byte{0x01}),
			EncodeExecute(execOpCall, targetX, big.NewInt(1), nil), // denied
		}
		values := []*big.Int{big.NewInt(0), big.NewInt(1)}

		_, err := km.ExecuteBatch(alice, big.NewInt(1), values, payloads)
		require.Error(t, err)

		stored, err := host.GetData(key[:])
		require.NoError(t, err)
		assert.Empty(t, stored, "no side effect from the allowed entry survives")
	})
}

func TestValueConservationProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		km, _ := newTestGateway()

		count := rapid.IntRange(1, 6).Draw(t, "count")

		values := make([]*big.Int, count)
		payloads := make([][]byte, count)
		sum := new(big.Int)

		for i := 0; i < count; i++ {
			v := rapid.Int64Range(0, 1<<40).Draw(t, "value")
			values[i] = big.NewInt(v)
			sum.Add(sum, values[i])
		}

		delta := rapid.Int64Range(-5, 5).Draw(t, "delta")
		attached := new(big.Int).Add(sum, big.NewInt(delta))

		_, err := km.ExecuteBatch(alice, attached, values, payloads)

		if delta == 0 {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
	})
}

func TestReentrancyRequiresExplicitBit(t *testing.T) {
	t.Parallel()

	nestedPayload := EncodeExecute(execOpCall, bob, nil, []byte{0xaa, 0xbb, 0xcc, 0xdd})

	setup := func(t *testing.T, reentrant bool) (*KeyManager, *testHost, *error) {
		t.Helper()

		km, host := newTestGateway()

		mask := PermissionSuperCall
		if reentrant {
			mask |= PermissionReentrancy
		}

		host.grant(t, alice, mask)

		var nestedErr error

		host.handler = func(op *CallOp) ([]byte, error) {
			// the called contract turns around and re-enters the gateway
			if op.Target == targetX {
				_, nestedErr = km.Execute(alice, nil, nestedPayload)
			}

			return nil, nil
		}

		return km, host, &nestedErr
	}

	t.Run("denied without the bit", func(t *testing.T) {
		t.Parallel()

		km, _, nestedErr := setup(t, false)

		outer := EncodeExecute(execOpCall, targetX, nil, []byte{1, 2, 3, 4})

		_, err := km.Execute(alice, nil, outer)
		require.NoError(t, err, "outer call itself is fine")

		require.Error(t, *nestedErr)

		var nae *NotAuthorisedError

		require.True(t, errors.As(*nestedErr, &nae))
		assert.Equal(t, PermissionReentrancy, nae.Missing)
	})

	t.Run("allowed with the bit", func(t *testing.T) {
		t.Parallel()

		km, _, nestedErr := setup(t, true)

		outer := EncodeExecute(execOpCall, targetX, nil, []byte{1, 2, 3, 4})

		_, err := km.Execute(alice, nil, outer)
		require.NoError(t, err)
		assert.NoError(t, *nestedErr)
	})
}
