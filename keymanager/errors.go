package keymanager

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/xgr-network/xgr-keymanager/types"
)

// Error categories. Every failure the gateway produces unwraps to exactly
// one of these, so callers can classify with errors.Is without depending on
// the concrete error type.
var (
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrAllowListDenied     = errors.New("allow list denied")
	ErrStructural          = errors.New("structural error")
	ErrReplay              = errors.New("replay error")
	ErrSignature           = errors.New("signature error")
)

// ErrDelegateCallDisallowed: delegate calls are denied through the gateway
// unconditionally, whatever bits the caller holds.
var ErrDelegateCallDisallowed = fmt.Errorf("%w: delegate calls are not available through the gateway", ErrAuthorizationDenied)

// NotAuthorisedError reports a missing permission bit.
type NotAuthorisedError struct {
	Address types.Address
	Missing Permission
}

func (e *NotAuthorisedError) Error() string {
	return fmt.Sprintf("address %s is missing permission %s", e.Address, e.Missing)
}

func (e *NotAuthorisedError) Unwrap() error {
	return ErrAuthorizationDenied
}

// NoPermissionsSetError reports a caller with no registry entry at all.
type NoPermissionsSetError struct {
	Address types.Address
}

func (e *NoPermissionsSetError) Error() string {
	return fmt.Sprintf("address %s has no permissions set", e.Address)
}

func (e *NoPermissionsSetError) Unwrap() error {
	return ErrAuthorizationDenied
}

// CallNotAllowedError reports a call target not covered by the caller's
// allowed-calls list.
type CallNotAllowedError struct {
	Address  types.Address
	Target   types.Address
	CallType CallType
}

func (e *CallNotAllowedError) Error() string {
	return fmt.Sprintf("address %s is not allowed to %s %s", e.Address, e.CallType, e.Target)
}

func (e *CallNotAllowedError) Unwrap() error {
	return ErrAllowListDenied
}

// DataKeyNotAllowedError reports a data key outside the caller's
// allowed-data-keys prefixes.
type DataKeyNotAllowedError struct {
	Address types.Address
	Key     types.Hash
}

func (e *DataKeyNotAllowedError) Error() string {
	return fmt.Sprintf("address %s is not allowed to set data key %s", e.Address, e.Key)
}

func (e *DataKeyNotAllowedError) Unwrap() error {
	return ErrAllowListDenied
}

// MalformedListError reports a broken compact-bytes-array entry, either on
// decode or at write time.
type MalformedListError struct {
	List   string // "allowed-calls" or "allowed-data-keys"
	Index  int
	Reason string
}

func (e *MalformedListError) Error() string {
	return fmt.Sprintf("malformed %s list: entry %d: %s", e.List, e.Index, e.Reason)
}

func (e *MalformedListError) Unwrap() error {
	return ErrStructural
}

// InvalidPayloadError reports an undecodable gateway payload.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return "invalid payload: " + e.Reason
}

func (e *InvalidPayloadError) Unwrap() error {
	return ErrStructural
}

// InvalidNonceError reports a relay nonce that is not the channel's current
// value.
type InvalidNonceError struct {
	Signer    types.Address
	Presented uint64
	Expected  uint64
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("invalid nonce for %s: presented %d, expected %d", e.Signer, e.Presented, e.Expected)
}

func (e *InvalidNonceError) Unwrap() error {
	return ErrReplay
}

// RelayCallExpiredError reports a relay call outside its validity window.
type RelayCallExpiredError struct {
	Now       uint64
	NotBefore uint64
	ExpiresAt uint64
}

func (e *RelayCallExpiredError) Error() string {
	return fmt.Sprintf("relay call outside validity window [%d, %d] at %d", e.NotBefore, e.ExpiresAt, e.Now)
}

func (e *RelayCallExpiredError) Unwrap() error {
	return ErrReplay
}

// InvalidSignatureError reports an unrecoverable relay signature.
type InvalidSignatureError struct {
	Err error
}

func (e *InvalidSignatureError) Error() string {
	if e.Err == nil {
		return "invalid relay signature"
	}

	return "invalid relay signature: " + e.Err.Error()
}

func (e *InvalidSignatureError) Unwrap() error {
	return ErrSignature
}

// BatchLengthMismatchError reports batch arrays of differing lengths.
type BatchLengthMismatchError struct {
	Field    string
	Expected int
	Got      int
}

func (e *BatchLengthMismatchError) Error() string {
	return fmt.Sprintf("batch length mismatch: %s has %d entries, expected %d", e.Field, e.Got, e.Expected)
}

func (e *BatchLengthMismatchError) Unwrap() error {
	return ErrStructural
}

// ValueSumError reports attached funds that do not equal the declared
// per-entry values of a batch.
type ValueSumError struct {
	Attached *big.Int
	Declared *big.Int
}

func (e *ValueSumError) Error() string {
	if e.Attached.Cmp(e.Declared) < 0 {
		return fmt.Sprintf("insufficient value sent: attached %s, declared %s", e.Attached, e.Declared)
	}

	return fmt.Sprintf("excessive value sent: attached %s, declared %s", e.Attached, e.Declared)
}

func (e *ValueSumError) Unwrap() error {
	return ErrStructural
}
