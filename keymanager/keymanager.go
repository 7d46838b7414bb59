// Package keymanager implements a permission-checking authorization gateway
// in front of an account. Every execution request, direct or relayed, is
// decoded into one operation, checked against the acting address's
// permission bitmask and allow-lists, and only then handed to the Host.
package keymanager

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

// Config carries the gateway's ambient collaborators. Zero values are
// usable: discarded logs, unregistered metrics, wall-clock time.
type Config struct {
	Logger hclog.Logger

	// Registerer receives the decision counters; nil keeps them local.
	Registerer prometheus.Registerer

	// Now supplies the time for relay validity windows, in unix seconds.
	Now func() uint64
}

// KeyManager is the gateway. One instance fronts one Host; execution is
// single-threaded per call tree, matching the substrate's call model.
type KeyManager struct {
	host       Host
	store      *store
	verifier   *verifier
	nonces     nonceGuard
	reentrancy reentrancyTracker
	metrics    *metrics
	logger     hclog.Logger
	now        func() uint64
}

func New(host Host, config *Config) *KeyManager {
	if config == nil {
		config = &Config{}
	}

	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	logger = logger.Named("keymanager")

	now := config.Now
	if now == nil {
		now = unixNow
	}

	store := newStore(host)

	return &KeyManager{
		host:     host,
		store:    store,
		verifier: newVerifier(store, logger),
		nonces:   nonceGuard{host: host},
		metrics:  newMetrics(config.Registerer),
		logger:   logger,
		now:      now,
	}
}

// GetNonce returns the next valid relay nonce for signer on channel.
// Read-only.
func (k *KeyManager) GetNonce(signer types.Address, channel uint32) (uint64, error) {
	return k.nonces.Current(signer, channel)
}

// Execute runs one payload on behalf of caller, with value attached.
func (k *KeyManager) Execute(caller types.Address, value *big.Int, payload []byte) ([]byte, error) {
	return k.entry(func(nested bool, requestID string) ([]byte, error) {
		return k.executeOne(caller, value, payload, nested, requestID)
	})
}

// ExecuteBatch runs several payloads for one caller. values and payloads
// are parallel arrays; the declared values must sum to exactly the attached
// funds. The batch is atomic: the first failing entry reverts all of it.
func (k *KeyManager) ExecuteBatch(
	caller types.Address,
	attached *big.Int,
	values []*big.Int,
	payloads [][]byte,
) ([][]byte, error) {
	return k.batchEntry(func(nested bool, requestID string) ([][]byte, error) {
		if len(values) != len(payloads) {
			return nil, &BatchLengthMismatchError{
				Field:    "values",
				Expected: len(payloads),
				Got:      len(values),
			}
		}

		if err := checkValueSum(attached, values); err != nil {
			return nil, err
		}

		results := make([][]byte, len(payloads))

		for i := range payloads {
			out, err := k.executeOne(caller, values[i], payloads[i], nested, requestID)
			if err != nil {
				return nil, err
			}

			results[i] = out
		}

		return results, nil
	})
}

// ExecuteRelayCall authenticates a signed relay call and runs its payload
// on behalf of the recovered signer.
func (k *KeyManager) ExecuteRelayCall(call *types.RelayCall) ([]byte, error) {
	return k.entry(func(nested bool, requestID string) ([]byte, error) {
		return k.executeRelay(call, nested, requestID)
	})
}

// ExecuteRelayCallBatch runs several relay calls, each authenticated on its
// own. The calls' declared values must sum to exactly the attached funds;
// the batch is atomic.
func (k *KeyManager) ExecuteRelayCallBatch(calls []*types.RelayCall, attached *big.Int) ([][]byte, error) {
	return k.batchEntry(func(nested bool, requestID string) ([][]byte, error) {
		values := make([]*big.Int, len(calls))
		for i, call := range calls {
			values[i] = call.Value
		}

		if err := checkValueSum(attached, values); err != nil {
			return nil, err
		}

		results := make([][]byte, len(calls))

		for i, call := range calls {
			out, err := k.executeRelay(call, nested, requestID)
			if err != nil {
				return nil, err
			}

			results[i] = out
		}

		return results, nil
	})
}

// entry brackets one top-level (or nested) gateway invocation: reentrancy
// accounting, state snapshot, commit on success at depth zero, full revert
// on any failure.
func (k *KeyManager) entry(run func(nested bool, requestID string) ([]byte, error)) ([]byte, error) {
	nested := k.reentrancy.enter()
	defer k.reentrancy.exit()

	requestID := uuid.New().String()
	snapshot := k.host.Snapshot()

	out, err := run(nested, requestID)
	if err != nil {
		k.host.RevertToSnapshot(snapshot)

		return nil, err
	}

	if !nested {
		if err := k.host.Commit(); err != nil {
			k.host.RevertToSnapshot(snapshot)

			return nil, err
		}
	}

	return out, nil
}

func (k *KeyManager) batchEntry(run func(nested bool, requestID string) ([][]byte, error)) ([][]byte, error) {
	var results [][]byte

	_, err := k.entry(func(nested bool, requestID string) ([]byte, error) {
		var err error

		results, err = run(nested, requestID)

		return nil, err
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// executeRelay authenticates one relay call and runs it as the recovered
// signer. The validity window is checked first so an expired call never
// burns a nonce; nonce consumption precedes verification but sits inside
// the entry snapshot, so a denied call leaves the nonce untouched too.
func (k *KeyManager) executeRelay(call *types.RelayCall, nested bool, requestID string) ([]byte, error) {
	if err := checkRelayWindow(call, k.now()); err != nil {
		k.metrics.observe("relay", err)

		return nil, err
	}

	signer, err := recoverRelaySigner(k.host.Address(), k.host.ChainID(), call)
	if err != nil {
		k.metrics.observe("relay", err)

		return nil, err
	}

	if err := k.nonces.Consume(signer, call.Nonce); err != nil {
		k.metrics.observe("relay", err)
		k.logger.Debug("relay nonce rejected",
			"request", requestID, "signer", signer, "nonce", call.Nonce)

		return nil, err
	}

	return k.executeOne(signer, call.Value, call.Payload, nested, requestID)
}

// executeOne decodes, verifies and dispatches a single payload.
func (k *KeyManager) executeOne(
	caller types.Address,
	value *big.Int,
	payload []byte,
	nested bool,
	requestID string,
) ([]byte, error) {
	op, err := DecodeOperation(payload, value)
	if err != nil {
		k.metrics.observe("decode", err)

		return nil, err
	}

	err = k.verifier.verify(caller, op, nested)
	k.metrics.observe(op.Kind.String(), err)

	if err != nil {
		k.logger.Debug("operation denied",
			"request", requestID, "caller", caller, "operation", op.Kind, "error", err)

		return nil, err
	}

	k.logger.Debug("operation allowed",
		"request", requestID, "caller", caller, "operation", op.Kind)

	return k.dispatch(caller, op)
}

// dispatch applies an allowed operation through the Host.
func (k *KeyManager) dispatch(caller types.Address, op *Operation) ([]byte, error) {
	switch op.Kind {
	case OpTopUp:
		// funds settle on the account itself; nothing to do here
		return nil, nil

	case OpTransferValue, OpCall, OpStaticCall, OpDelegateCall, OpDeploy:
		return k.host.ExecuteCall(&CallOp{
			Kind:    op.Kind,
			Target:  op.Target,
			Value:   op.Value,
			Data:    op.Data,
			Create2: op.Create2,
		})

	case OpSetData, OpSetDataBatch:
		return nil, k.applySetData(op)

	case OpTransferOwnership:
		return nil, k.store.SetPendingOwner(op.NewOwner)

	case OpAcceptOwnership:
		if err := k.store.SetOwner(caller); err != nil {
			return nil, err
		}

		return nil, k.store.SetPendingOwner(types.ZeroAddress)
	}

	return nil, &InvalidPayloadError{Reason: "undispatchable operation"}
}

// applySetData writes the verified key/value pairs, keeping the controller
// array in sync with permission-entry writes.
func (k *KeyManager) applySetData(op *Operation) error {
	for i, key := range op.DataKeys {
		value := op.DataValues[i]

		if classified := schema.Classify(key); classified.Kind == schema.KindPermissions {
			if err := k.syncControllerArray(classified.Address, value); err != nil {
				return err
			}
		}

		if err := k.host.SetData(key[:], value); err != nil {
			return err
		}
	}

	return nil
}

// syncControllerArray keeps the registry list consistent with a permission
// write: a first nonzero grant appends the controller, a revoke to zero
// tombstones its slot without renumbering the others.
func (k *KeyManager) syncControllerArray(controller types.Address, newValue []byte) error {
	_, hadEntry, err := k.store.Permissions(controller)
	if err != nil {
		return err
	}

	hasEntry := DecodePermissions(newValue) != 0

	switch {
	case hasEntry && !hadEntry:
		return k.store.AppendController(controller)

	case !hasEntry && hadEntry:
		return k.tombstoneController(controller)
	}

	return nil
}

func (k *KeyManager) tombstoneController(controller types.Address) error {
	count, err := k.store.ControllerCount()
	if err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		at, err := k.store.ControllerAt(i)
		if err != nil {
			return err
		}

		if at == controller {
			return k.store.SetControllerAt(i, types.ZeroAddress)
		}
	}

	return nil
}

func unixNow() uint64 {
	return uint64(time.Now().Unix())
}

func checkValueSum(attached *big.Int, values []*big.Int) error {
	if attached == nil {
		attached = new(big.Int)
	}

	sum := new(big.Int)

	for i, v := range values {
		if v == nil {
			continue
		}

		// declared amounts are unsigned; a negative entry could otherwise
		// cancel another one out and still satisfy the equality check
		if v.Sign() < 0 {
			return &InvalidPayloadError{
				Reason: fmt.Sprintf("negative value in batch entry %d", i),
			}
		}

		sum.Add(sum, v)
	}

	if sum.Cmp(attached) != 0 {
		return &ValueSumError{Attached: attached, Declared: sum}
	}

	return nil
}
