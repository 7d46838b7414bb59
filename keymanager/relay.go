package keymanager

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/xgr-network/xgr-keymanager/crypto"
	"github.com/xgr-network/xgr-keymanager/types"
)

// relayDigestVersion tags the signed artifact layout. Bump it whenever the
// byte layout below changes.
const relayDigestVersion uint16 = 1

// RelayDigest computes the digest a relay signer commits to:
//
//	keccak256( 0x19 ‖ 0x00
//	           ‖ gateway address (20 bytes)
//	           ‖ version   (uint16 BE)
//	           ‖ chain id  (uint64 BE)
//	           ‖ nonce     (uint64 BE)
//	           ‖ notBefore (uint64 BE) ‖ expiresAt (uint64 BE)
//	           ‖ value     (32-byte BE word)
//	           ‖ payload bytes )
//
// The 0x19 0x00 prefix keeps the preimage from ever being valid RLP, so a
// relay signature can never double as a transaction signature. Binding the
// gateway address and chain id scopes it to one deployment.
func RelayDigest(gateway types.Address, chainID uint64, call *types.RelayCall) types.Hash {
	buf := make([]byte, 0, 2+20+2+8*4+32+len(call.Payload))

	buf = append(buf, 0x19, 0x00)
	buf = append(buf, gateway[:]...)
	buf = binary.BigEndian.AppendUint16(buf, relayDigestVersion)
	buf = binary.BigEndian.AppendUint64(buf, chainID)
	buf = binary.BigEndian.AppendUint64(buf, call.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, call.NotBefore)
	buf = binary.BigEndian.AppendUint64(buf, call.ExpiresAt)

	var value [32]byte
	if call.Value != nil {
		call.Value.FillBytes(value[:])
	}

	buf = append(buf, value[:]...)
	buf = append(buf, call.Payload...)

	return crypto.Keccak256Hash(buf)
}

// SignRelayCall fills in the call's signature for the given gateway and
// chain id.
func SignRelayCall(key *btcec.PrivateKey, gateway types.Address, chainID uint64, call *types.RelayCall) error {
	digest := RelayDigest(gateway, chainID, call)

	sig, err := crypto.Sign(key, digest[:])
	if err != nil {
		return err
	}

	call.Signature = sig

	return nil
}

// checkRelayWindow enforces the call's validity window. Zero bounds are
// open: notBefore 0 is valid immediately, expiresAt 0 never expires.
func checkRelayWindow(call *types.RelayCall, now uint64) error {
	if now < call.NotBefore || (call.ExpiresAt != 0 && now > call.ExpiresAt) {
		return &RelayCallExpiredError{
			Now:       now,
			NotBefore: call.NotBefore,
			ExpiresAt: call.ExpiresAt,
		}
	}

	return nil
}

// recoverRelaySigner authenticates the relay signature and returns the
// signing address. The recovered signer is then authorized exactly like a
// direct caller; authentication grants nothing by itself.
func recoverRelaySigner(gateway types.Address, chainID uint64, call *types.RelayCall) (types.Address, error) {
	digest := RelayDigest(gateway, chainID, call)

	signer, err := crypto.RecoverAddress(call.Signature, digest[:])
	if err != nil {
		return types.ZeroAddress, &InvalidSignatureError{Err: err}
	}

	if signer == types.ZeroAddress {
		return types.ZeroAddress, &InvalidSignatureError{}
	}

	return signer, nil
}
