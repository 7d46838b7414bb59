// Package schema derives the data keys under which the gateway persists its
// own records inside the account's key/value store, and classifies incoming
// 32-byte data keys back into those records.
//
// Mapped keys are `12-byte prefix ‖ 20-byte tail`, with the prefix taken from
// the keccak256 of a stable name. Keys carrying no tail are the full keccak256
// of their name. Nonce keys are longer than 32 bytes on purpose: they can
// never be addressed through a setData payload, whose keys are fixed-width.
package schema

import (
	"encoding/binary"

	"github.com/xgr-network/xgr-keymanager/crypto"
	"github.com/xgr-network/xgr-keymanager/types"
)

const (
	prefixLength = 12
	tailLength   = 20
)

var (
	// PermissionsPrefix ‖ controller: 32-byte big-endian permission bitmask.
	PermissionsPrefix = keyPrefix("KM:ADDRESS_PERMISSIONS")

	// AllowedCallsPrefix ‖ controller: compact bytes array of call entries.
	AllowedCallsPrefix = keyPrefix("KM:ALLOWED_CALLS")

	// AllowedDataKeysPrefix ‖ controller: compact bytes array of key prefixes.
	AllowedDataKeysPrefix = keyPrefix("KM:ALLOWED_DATA_KEYS")

	// URDPrefix ‖ typeID[:20]: universal-receiver-delegate address per type id.
	URDPrefix = keyPrefix("KM:UNIVERSAL_RECEIVER_DELEGATE")

	// ExtensionPrefix ‖ selector ‖ 16 zero bytes: extension address routed
	// per function selector.
	ExtensionPrefix = keyPrefix("KM:EXTENSION")

	// ControllerArrayKey: 16-byte big-endian length of the controller list.
	// Index keys reuse the first half of the length key.
	ControllerArrayKey = crypto.Keccak256Hash([]byte("KM:CONTROLLERS[]"))

	// OwnerKey / PendingOwnerKey: 20-byte owner addresses.
	OwnerKey        = crypto.Keccak256Hash([]byte("KM:OWNER"))
	PendingOwnerKey = crypto.Keccak256Hash([]byte("KM:PENDING_OWNER"))

	noncePrefix = keyPrefix("KM:NONCE")
)

func keyPrefix(name string) [prefixLength]byte {
	var p [prefixLength]byte

	copy(p[:], crypto.Keccak256([]byte(name)))

	return p
}

func mappedKey(prefix [prefixLength]byte, tail [tailLength]byte) types.Hash {
	var k types.Hash

	copy(k[:prefixLength], prefix[:])
	copy(k[prefixLength:], tail[:])

	return k
}

// PermissionsKey returns the data key holding controller's permission bitmask.
func PermissionsKey(controller types.Address) types.Hash {
	return mappedKey(PermissionsPrefix, controller)
}

// AllowedCallsKey returns the data key holding controller's allowed-calls list.
func AllowedCallsKey(controller types.Address) types.Hash {
	return mappedKey(AllowedCallsPrefix, controller)
}

// AllowedDataKeysKey returns the data key holding controller's
// allowed-data-keys list.
func AllowedDataKeysKey(controller types.Address) types.Hash {
	return mappedKey(AllowedDataKeysPrefix, controller)
}

// ControllerIndexKey returns the data key of the controller list entry at
// the given index: first 16 bytes of the array key ‖ 16-byte BE index.
func ControllerIndexKey(index uint64) types.Hash {
	var k types.Hash

	copy(k[:16], ControllerArrayKey[:16])
	binary.BigEndian.PutUint64(k[24:], index)

	return k
}

// URDKey returns the universal-receiver-delegate mapping key for a type id.
// Only the first 20 bytes of the type id survive in the key tail.
func URDKey(typeID types.Hash) types.Hash {
	var tail [tailLength]byte

	copy(tail[:], typeID[:tailLength])

	return mappedKey(URDPrefix, tail)
}

// ExtensionKey returns the extension mapping key for a function selector.
func ExtensionKey(selector [4]byte) types.Hash {
	var tail [tailLength]byte

	copy(tail[:4], selector[:])

	return mappedKey(ExtensionPrefix, tail)
}

// NonceKey returns the store key of the (signer, channel) nonce counter.
// The key is 36 bytes long, deliberately outside the setData key width.
func NonceKey(signer types.Address, channel uint32) []byte {
	k := make([]byte, 0, prefixLength+tailLength+4)
	k = append(k, noncePrefix[:]...)
	k = append(k, signer[:]...)
	k = binary.BigEndian.AppendUint32(k, channel)

	return k
}

// KeyKind identifies which gateway record a 32-byte data key addresses.
type KeyKind int

const (
	// KindGeneric: not a gateway record, subject to the plain SETDATA rules.
	KindGeneric KeyKind = iota
	KindPermissions
	KindAllowedCalls
	KindAllowedDataKeys
	KindControllerArrayLength
	KindControllerArrayIndex
	KindOwner
	KindPendingOwner
	KindURD
	KindExtension
)

func (k KeyKind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindPermissions:
		return "permissions"
	case KindAllowedCalls:
		return "allowed-calls"
	case KindAllowedDataKeys:
		return "allowed-data-keys"
	case KindControllerArrayLength:
		return "controller-array-length"
	case KindControllerArrayIndex:
		return "controller-array-index"
	case KindOwner:
		return "owner"
	case KindPendingOwner:
		return "pending-owner"
	case KindURD:
		return "universal-receiver-delegate"
	case KindExtension:
		return "extension"
	}

	return "unknown"
}

// ClassifiedKey is the parse result of a 32-byte data key.
type ClassifiedKey struct {
	Kind KeyKind

	// Address is the controller the key refers to; set for permissions and
	// allow-list kinds.
	Address types.Address

	// Index is set for controller-array-index keys.
	Index uint64
}

// Classify maps a data key onto the gateway record it addresses, if any.
func Classify(key types.Hash) ClassifiedKey {
	switch key {
	case ControllerArrayKey:
		return ClassifiedKey{Kind: KindControllerArrayLength}
	case OwnerKey:
		return ClassifiedKey{Kind: KindOwner}
	case PendingOwnerKey:
		return ClassifiedKey{Kind: KindPendingOwner}
	}

	if hasPrefix(key, ControllerArrayKey[:16]) {
		return ClassifiedKey{
			Kind:  KindControllerArrayIndex,
			Index: binary.BigEndian.Uint64(key[24:]),
		}
	}

	var prefix [prefixLength]byte

	copy(prefix[:], key[:prefixLength])

	switch prefix {
	case PermissionsPrefix:
		return ClassifiedKey{Kind: KindPermissions, Address: keyTailAddress(key)}
	case AllowedCallsPrefix:
		return ClassifiedKey{Kind: KindAllowedCalls, Address: keyTailAddress(key)}
	case AllowedDataKeysPrefix:
		return ClassifiedKey{Kind: KindAllowedDataKeys, Address: keyTailAddress(key)}
	case URDPrefix:
		return ClassifiedKey{Kind: KindURD}
	case ExtensionPrefix:
		return ClassifiedKey{Kind: KindExtension}
	}

	return ClassifiedKey{Kind: KindGeneric}
}

func hasPrefix(key types.Hash, prefix []byte) bool {
	for i, b := range prefix {
		if key[i] != b {
			return false
		}
	}

	return true
}

func keyTailAddress(key types.Hash) types.Address {
	var addr types.Address

	copy(addr[:], key[prefixLength:])

	return addr
}
