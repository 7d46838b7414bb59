package keymanager

import (
	"math/big"

	"github.com/xgr-network/xgr-keymanager/types"
)

// CallOp is the execution request the gateway hands to the Host once an
// operation has been authorized.
type CallOp struct {
	Kind    OpKind
	Target  types.Address
	Value   *big.Int
	Data    []byte
	Create2 bool
}

// Host is the account the gateway fronts. It owns the key/value store and
// the execution substrate; the gateway only decides, the Host acts.
//
// Snapshot/RevertToSnapshot/Commit bracket every top-level gateway entry so
// a failing call (or batch) leaves no partial state behind.
type Host interface {
	// Address is the gateway's own address, bound into relay digests.
	Address() types.Address

	// ChainID scopes relay signatures to one deployment.
	ChainID() uint64

	GetData(key []byte) ([]byte, error)
	SetData(key, value []byte) error

	// ExecuteCall performs an authorized call, static call, value transfer
	// or deployment. The Host reverts on its own failures.
	ExecuteCall(op *CallOp) ([]byte, error)

	// SupportsStandard reports whether target implements the 4-byte
	// standard interface id. Allowed-calls standard fields resolve here.
	SupportsStandard(target types.Address, id [4]byte) bool

	Snapshot() int
	RevertToSnapshot(snapshot int)
	Commit() error
}
