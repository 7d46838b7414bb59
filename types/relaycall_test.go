package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/umbracle/fastrlp"
)

func TestRelayCall_RLPRoundtrip(t *testing.T) {
	t.Parallel()

	rc := &RelayCall{
		Signature: make([]byte, 65),
		Nonce:     5<<32 | 7,
		NotBefore: 1700000000,
		ExpiresAt: 1700003600,
		Value:     big.NewInt(42),
		Payload:   []byte{0xAA, 0xBB, 0xCC},
	}
	rc.Signature[64] = 0x01

	raw := rc.MarshalRLP()

	var got RelayCall
	require.NoError(t, got.UnmarshalRLP(raw))
	require.Equal(t, rc.Signature, got.Signature)
	require.Equal(t, rc.Nonce, got.Nonce)
	require.Equal(t, rc.NotBefore, got.NotBefore)
	require.Equal(t, rc.ExpiresAt, got.ExpiresAt)
	require.Equal(t, int64(42), got.Value.Int64())
	require.Equal(t, rc.Payload, got.Payload)
}

func TestRelayCall_RLPRoundtrip_EmptyFields(t *testing.T) {
	t.Parallel()

	rc := &RelayCall{}

	raw := rc.MarshalRLP()

	var got RelayCall
	require.NoError(t, got.UnmarshalRLP(raw))
	require.Equal(t, uint64(0), got.Nonce)
	require.Equal(t, 0, got.Value.Sign())
	require.Empty(t, got.Payload)
}

func TestRelayCall_RLP_InvalidShape(t *testing.T) {
	t.Parallel()

	ar := &fastrlp.Arena{}

	// envelope with a missing payload element (should be 6 elems, we give 5)
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(make([]byte, 65))) // signature
	vv.Set(ar.NewUint(1))                     // nonce
	vv.Set(ar.NewUint(0))                     // notBefore
	vv.Set(ar.NewUint(0))                     // expiresAt
	vv.Set(ar.NewBigInt(big.NewInt(0)))       // value

	raw := vv.MarshalTo(nil)

	var rc RelayCall
	err := rc.UnmarshalRLP(raw)
	require.Error(t, err)
}

func TestRelayCall_RLP_NotAList(t *testing.T) {
	t.Parallel()

	ar := &fastrlp.Arena{}
	raw := ar.NewCopyBytes([]byte{0x01, 0x02}).MarshalTo(nil)

	var rc RelayCall
	require.Error(t, rc.UnmarshalRLP(raw))
}
