// Package account provides a Host implementation backed by a storage.KV
// through a state.Txn overlay. It stands in for the account contract the
// gateway fronts: it owns the data store, tracks balances, and routes
// authorized calls to a pluggable handler.
package account

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/hashicorp/go-hclog"

	"github.com/xgr-network/xgr-keymanager/crypto"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/state"
	"github.com/xgr-network/xgr-keymanager/storage"
	"github.com/xgr-network/xgr-keymanager/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoCallHandler       = errors.New("no call handler installed")
)

// Internal record keys. Like the gateway's nonce keys they are longer than
// 32 bytes, so setData payloads can never address them.
var (
	balancePrefix  = []byte("AC:BALANCE:")
	deployNonceKey = []byte("AC:DEPLOY_NONCE:self")
)

// CallHandler receives authorized calls and static calls that carry data.
// Tests use it to simulate target behavior, including calls back into the
// gateway.
type CallHandler func(op *keymanager.CallOp) ([]byte, error)

type Config struct {
	Address types.Address
	ChainID uint64
	Logger  hclog.Logger
}

// Account implements keymanager.Host.
type Account struct {
	address types.Address
	chainID uint64
	txn     *state.Txn

	standards map[types.Address]map[[4]byte]struct{}
	handler   CallHandler
	logger    hclog.Logger
}

func New(kv storage.KV, config *Config) *Account {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Account{
		address:   config.Address,
		chainID:   config.ChainID,
		txn:       state.NewTxn(kv),
		standards: map[types.Address]map[[4]byte]struct{}{},
		logger:    logger.Named("account"),
	}
}

// SetCallHandler installs the receiver for authorized calls carrying data.
func (a *Account) SetCallHandler(handler CallHandler) {
	a.handler = handler
}

// RegisterStandard marks target as implementing the 4-byte standard id.
func (a *Account) RegisterStandard(target types.Address, id [4]byte) {
	if a.standards[target] == nil {
		a.standards[target] = map[[4]byte]struct{}{}
	}

	a.standards[target][id] = struct{}{}
}

func (a *Account) Address() types.Address {
	return a.address
}

func (a *Account) ChainID() uint64 {
	return a.chainID
}

func (a *Account) GetData(key []byte) ([]byte, error) {
	value, _, err := a.txn.Get(key)

	return value, err
}

func (a *Account) SetData(key, value []byte) error {
	if len(value) == 0 {
		a.txn.Delete(key)

		return nil
	}

	a.txn.Set(key, value)

	return nil
}

// ExecuteCall performs an authorized operation. Value moves from the
// account to the target; calls carrying data go through the installed
// handler.
func (a *Account) ExecuteCall(op *keymanager.CallOp) ([]byte, error) {
	switch op.Kind {
	case keymanager.OpTransferValue:
		return nil, a.moveValue(a.address, op.Target, op.Value)

	case keymanager.OpCall:
		if err := a.moveValue(a.address, op.Target, op.Value); err != nil {
			return nil, err
		}

		if len(op.Data) == 0 {
			return nil, nil
		}

		return a.runHandler(op)

	case keymanager.OpStaticCall:
		return a.runHandler(op)

	case keymanager.OpDeploy:
		return a.deploy(op)
	}

	return nil, fmt.Errorf("unsupported call kind %s", op.Kind)
}

func (a *Account) runHandler(op *keymanager.CallOp) ([]byte, error) {
	if a.handler == nil {
		return nil, ErrNoCallHandler
	}

	return a.handler(op)
}

func (a *Account) deploy(op *keymanager.CallOp) ([]byte, error) {
	var deployed types.Address

	if op.Create2 {
		salt, initCode := splitCreate2Data(op.Data)
		deployed = crypto.CreateAddress2(a.address, salt, initCode)
	} else {
		nonce, err := a.deployNonce()
		if err != nil {
			return nil, err
		}

		deployed = crypto.CreateAddress(a.address, nonce)

		if err := a.setDeployNonce(nonce + 1); err != nil {
			return nil, err
		}
	}

	if err := a.moveValue(a.address, deployed, op.Value); err != nil {
		return nil, err
	}

	a.logger.Debug("contract deployed", "address", deployed, "create2", op.Create2)

	return deployed[:], nil
}

// splitCreate2Data takes the trailing 32 bytes of the deployment data as
// the salt; the rest is the init code.
func splitCreate2Data(data []byte) (types.Hash, []byte) {
	if len(data) < 32 {
		return types.ZeroHash, data
	}

	cut := len(data) - 32

	return types.BytesToHash(data[cut:]), data[:cut]
}

func (a *Account) SupportsStandard(target types.Address, id [4]byte) bool {
	_, ok := a.standards[target][id]

	return ok
}

func (a *Account) Snapshot() int {
	return a.txn.Snapshot()
}

func (a *Account) RevertToSnapshot(snapshot int) {
	a.txn.RevertToSnapshot(snapshot)
}

func (a *Account) Commit() error {
	return a.txn.Commit()
}

// Balance returns the tracked balance of addr, zero when unset.
func (a *Account) Balance(addr types.Address) (*big.Int, error) {
	value, _, err := a.txn.Get(balanceKey(addr))
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(value), nil
}

// Credit adds funds to addr's balance, e.g. when seeding a fixture or
// receiving a top-up.
func (a *Account) Credit(addr types.Address, amount *big.Int) error {
	balance, err := a.Balance(addr)
	if err != nil {
		return err
	}

	return a.setBalance(addr, balance.Add(balance, amount))
}

func (a *Account) moveValue(from, to types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}

	fromBalance, err := a.Balance(from)
	if err != nil {
		return err
	}

	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s",
			ErrInsufficientBalance, from, fromBalance, amount)
	}

	toBalance, err := a.Balance(to)
	if err != nil {
		return err
	}

	if err := a.setBalance(from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}

	return a.setBalance(to, toBalance.Add(toBalance, amount))
}

func (a *Account) setBalance(addr types.Address, balance *big.Int) error {
	return a.SetData(balanceKey(addr), balance.Bytes())
}

func balanceKey(addr types.Address) []byte {
	key := make([]byte, 0, len(balancePrefix)+len(addr))
	key = append(key, balancePrefix...)
	key = append(key, addr[:]...)

	return key
}

func (a *Account) deployNonce() (uint64, error) {
	value, _, err := a.txn.Get(deployNonceKey)
	if err != nil {
		return 0, err
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(value), nil
}

func (a *Account) setDeployNonce(nonce uint64) error {
	var value [8]byte

	binary.BigEndian.PutUint64(value[:], nonce)

	return a.SetData(deployNonceKey, value[:])
}
