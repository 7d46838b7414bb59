package keymanager

import (
	"math/big"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/xgr-network/xgr-keymanager/types"
)

// Gateway payload surface. The payload is standard ABI calldata; every
// accepted method is declared here and anything else is structurally
// invalid.
var (
	methodExecute = abi.MustNewMethod(
		"function execute(uint256 operationType, address target, uint256 value, bytes data)")
	methodSetData = abi.MustNewMethod(
		"function setData(bytes32 dataKey, bytes dataValue)")
	methodSetDataBatch = abi.MustNewMethod(
		"function setDataBatch(bytes32[] dataKeys, bytes[] dataValues)")
	methodTransferOwnership = abi.MustNewMethod(
		"function transferOwnership(address newOwner)")
	methodAcceptOwnership = abi.MustNewMethod(
		"function acceptOwnership()")
)

// execute() operation types.
const (
	execOpCall         = 0
	execOpCreate       = 1
	execOpCreate2      = 2
	execOpStaticCall   = 3
	execOpDelegateCall = 4
)

type OpKind int

const (
	// OpTopUp is a bare value transfer to the account itself: empty
	// payload, funds attached. It needs no permission.
	OpTopUp OpKind = iota
	OpTransferValue
	OpCall
	OpStaticCall
	OpDelegateCall
	OpDeploy
	OpSetData
	OpSetDataBatch
	OpTransferOwnership
	OpAcceptOwnership
)

func (k OpKind) String() string {
	switch k {
	case OpTopUp:
		return "topUp"
	case OpTransferValue:
		return "transferValue"
	case OpCall:
		return "call"
	case OpStaticCall:
		return "staticCall"
	case OpDelegateCall:
		return "delegateCall"
	case OpDeploy:
		return "deploy"
	case OpSetData:
		return "setData"
	case OpSetDataBatch:
		return "setDataBatch"
	case OpTransferOwnership:
		return "transferOwnership"
	case OpAcceptOwnership:
		return "acceptOwnership"
	}

	return "unknown"
}

// Operation is the decoded form of one gateway payload. Kind selects which
// of the remaining fields carry meaning.
type Operation struct {
	Kind OpKind

	// execute()
	Target  types.Address
	Value   *big.Int
	Data    []byte
	Create2 bool

	// setData / setDataBatch
	DataKeys   []types.Hash
	DataValues [][]byte

	// transferOwnership
	NewOwner types.Address
}

// DecodeOperation turns raw payload bytes into a closed Operation value.
// An empty payload is the value top-up; everything else must carry a known
// selector with well-formed arguments.
func DecodeOperation(payload []byte, attached *big.Int) (*Operation, error) {
	if len(payload) == 0 {
		return &Operation{Kind: OpTopUp, Value: attached}, nil
	}

	if len(payload) < 4 {
		return nil, &InvalidPayloadError{Reason: "payload shorter than a selector"}
	}

	var selector [4]byte

	copy(selector[:], payload[:4])
	args := payload[4:]

	switch selector {
	case methodID(methodExecute):
		return decodeExecute(args)

	case methodID(methodSetData):
		return decodeSetData(args)

	case methodID(methodSetDataBatch):
		return decodeSetDataBatch(args)

	case methodID(methodTransferOwnership):
		return decodeTransferOwnership(args)

	case methodID(methodAcceptOwnership):
		if len(args) != 0 {
			return nil, &InvalidPayloadError{Reason: "acceptOwnership takes no arguments"}
		}

		return &Operation{Kind: OpAcceptOwnership}, nil
	}

	return nil, &InvalidPayloadError{Reason: "unknown selector"}
}

func decodeExecute(args []byte) (*Operation, error) {
	fields, err := decodeArgs(methodExecute, args)
	if err != nil {
		return nil, err
	}

	opType, ok := fields["operationType"].(*big.Int)
	if !ok || !opType.IsUint64() {
		return nil, &InvalidPayloadError{Reason: "invalid operation type"}
	}

	target, ok := fields["target"].(ethgo.Address)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid target address"}
	}

	value, ok := fields["value"].(*big.Int)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid value"}
	}

	data, ok := fields["data"].([]byte)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid call data"}
	}

	op := &Operation{
		Target: types.Address(target),
		Value:  value,
		Data:   data,
	}

	switch opType.Uint64() {
	case execOpCall:
		if len(data) == 0 && value.Sign() > 0 {
			op.Kind = OpTransferValue
		} else {
			op.Kind = OpCall
		}

	case execOpCreate, execOpCreate2:
		op.Kind = OpDeploy
		op.Create2 = opType.Uint64() == execOpCreate2

	case execOpStaticCall:
		op.Kind = OpStaticCall

	case execOpDelegateCall:
		op.Kind = OpDelegateCall

	default:
		return nil, &InvalidPayloadError{Reason: "unknown operation type"}
	}

	return op, nil
}

func decodeSetData(args []byte) (*Operation, error) {
	fields, err := decodeArgs(methodSetData, args)
	if err != nil {
		return nil, err
	}

	key, ok := fields["dataKey"].([32]byte)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid data key"}
	}

	value, ok := fields["dataValue"].([]byte)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid data value"}
	}

	return &Operation{
		Kind:       OpSetData,
		DataKeys:   []types.Hash{key},
		DataValues: [][]byte{value},
	}, nil
}

func decodeSetDataBatch(args []byte) (*Operation, error) {
	fields, err := decodeArgs(methodSetDataBatch, args)
	if err != nil {
		return nil, err
	}

	rawKeys, ok := fields["dataKeys"].([][32]byte)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid data keys"}
	}

	values, ok := fields["dataValues"].([][]byte)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid data values"}
	}

	if len(rawKeys) != len(values) {
		return nil, &BatchLengthMismatchError{
			Field:    "dataValues",
			Expected: len(rawKeys),
			Got:      len(values),
		}
	}

	keys := make([]types.Hash, len(rawKeys))
	for i, k := range rawKeys {
		keys[i] = k
	}

	return &Operation{
		Kind:       OpSetDataBatch,
		DataKeys:   keys,
		DataValues: values,
	}, nil
}

func decodeTransferOwnership(args []byte) (*Operation, error) {
	fields, err := decodeArgs(methodTransferOwnership, args)
	if err != nil {
		return nil, err
	}

	newOwner, ok := fields["newOwner"].(ethgo.Address)
	if !ok {
		return nil, &InvalidPayloadError{Reason: "invalid new owner address"}
	}

	return &Operation{
		Kind:     OpTransferOwnership,
		NewOwner: types.Address(newOwner),
	}, nil
}

func decodeArgs(m *abi.Method, args []byte) (map[string]interface{}, error) {
	raw, err := abi.Decode(m.Inputs, args)
	if err != nil {
		return nil, &InvalidPayloadError{Reason: err.Error()}
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &InvalidPayloadError{Reason: "argument tuple did not decode"}
	}

	return fields, nil
}

func methodID(m *abi.Method) (id [4]byte) {
	copy(id[:], m.ID())

	return
}

// Selector returns the first four bytes of the operation's inner call data,
// when present. The verifier matches it against allowed-calls entries.
func (o *Operation) Selector() ([4]byte, bool) {
	var sel [4]byte

	if len(o.Data) < 4 {
		return sel, false
	}

	copy(sel[:], o.Data[:4])

	return sel, true
}

// Encode helpers build the canonical calldata for each gateway method. The
// CLI and tests use them; decode(encode(x)) round-trips.

func EncodeExecute(opType uint64, target types.Address, value *big.Int, data []byte) []byte {
	if value == nil {
		value = new(big.Int)
	}

	args, err := abi.Encode(map[string]interface{}{
		"operationType": new(big.Int).SetUint64(opType),
		"target":        ethgo.Address(target),
		"value":         value,
		"data":          data,
	}, methodExecute.Inputs)
	if err != nil {
		panic(err)
	}

	return append(methodExecute.ID(), args...)
}

func EncodeSetData(key types.Hash, value []byte) []byte {
	args, err := abi.Encode(map[string]interface{}{
		"dataKey":   [32]byte(key),
		"dataValue": value,
	}, methodSetData.Inputs)
	if err != nil {
		panic(err)
	}

	return append(methodSetData.ID(), args...)
}

func EncodeSetDataBatch(keys []types.Hash, values [][]byte) []byte {
	rawKeys := make([][32]byte, len(keys))
	for i, k := range keys {
		rawKeys[i] = k
	}

	args, err := abi.Encode(map[string]interface{}{
		"dataKeys":   rawKeys,
		"dataValues": values,
	}, methodSetDataBatch.Inputs)
	if err != nil {
		panic(err)
	}

	return append(methodSetDataBatch.ID(), args...)
}

func EncodeTransferOwnership(newOwner types.Address) []byte {
	args, err := abi.Encode(map[string]interface{}{
		"newOwner": ethgo.Address(newOwner),
	}, methodTransferOwnership.Inputs)
	if err != nil {
		panic(err)
	}

	return append(methodTransferOwnership.ID(), args...)
}

func EncodeAcceptOwnership() []byte {
	return methodAcceptOwnership.ID()
}
