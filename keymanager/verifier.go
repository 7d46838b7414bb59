package keymanager

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

// verifier is the policy core: given a decoded operation and the acting
// address it answers allow or deny. It reads the store but never writes;
// every deny is terminal and leaves no trace.
type verifier struct {
	store  *store
	logger hclog.Logger
}

func newVerifier(store *store, logger hclog.Logger) *verifier {
	return &verifier{
		store:  store,
		logger: logger.Named("verifier"),
	}
}

// verify decides whether caller may perform op. nested marks a gateway
// entry made while another one is still in flight.
func (v *verifier) verify(caller types.Address, op *Operation, nested bool) error {
	// a bare top-up carries no instruction; anyone may fund the account
	if op.Kind == OpTopUp {
		return nil
	}

	granted, found, err := v.store.Permissions(caller)
	if err != nil {
		return err
	}

	if !found {
		return &NoPermissionsSetError{Address: caller}
	}

	if nested && !granted.Has(PermissionReentrancy) {
		return permissionError(caller, PermissionReentrancy)
	}

	switch op.Kind {
	case OpTopUp:
		return nil

	case OpTransferValue:
		return v.verifyCall(caller, granted, op, CallTypeTransferValue)

	case OpCall:
		required := CallTypeCall
		if op.Value != nil && op.Value.Sign() > 0 {
			// moving value through a call needs the transfer capability
			// on top of the call capability
			required |= CallTypeTransferValue
		}

		return v.verifyCall(caller, granted, op, required)

	case OpStaticCall:
		return v.verifyCall(caller, granted, op, CallTypeStaticCall)

	case OpDelegateCall:
		// denied unconditionally, whatever bits the caller holds
		return ErrDelegateCallDisallowed

	case OpDeploy:
		if !granted.Has(PermissionDeploy) {
			return permissionError(caller, PermissionDeploy)
		}

		return nil

	case OpSetData, OpSetDataBatch:
		return v.verifySetData(caller, granted, op)

	case OpTransferOwnership:
		if !granted.Has(PermissionChangeOwner) {
			return permissionError(caller, PermissionChangeOwner)
		}

		return nil

	case OpAcceptOwnership:
		return v.verifyAcceptOwnership(caller, granted)
	}

	return &InvalidPayloadError{Reason: fmt.Sprintf("unhandled operation kind %d", op.Kind)}
}

// capability maps one call-type aspect onto its permission pair.
var callCapabilities = []struct {
	callType CallType
	super    Permission
	regular  Permission
}{
	{CallTypeTransferValue, PermissionSuperTransferValue, PermissionTransferValue},
	{CallTypeCall, PermissionSuperCall, PermissionCall},
	{CallTypeStaticCall, PermissionSuperStaticCall, PermissionStaticCall},
}

// verifyCall checks the permission pair of every required call-type aspect.
// SUPER satisfies its aspect outright; a regular bit additionally sends the
// aspect through the caller's allowed-calls list. All non-super aspects
// must be covered by a single list entry.
func (v *verifier) verifyCall(caller types.Address, granted Permission, op *Operation, required CallType) error {
	var restricted CallType

	for _, c := range callCapabilities {
		if required&c.callType == 0 {
			continue
		}

		if granted.Has(c.super) {
			continue
		}

		if !granted.Has(c.regular) {
			return permissionError(caller, c.regular)
		}

		restricted |= c.callType
	}

	if restricted == 0 {
		return nil
	}

	list, err := v.store.AllowedCalls(caller)
	if err != nil {
		return err
	}

	selector, hasSelector := op.Selector()

	query := callQuery{
		callType:    restricted,
		target:      op.Target,
		selector:    selector,
		hasSelector: hasSelector,
	}

	if !list.Matches(query, v.store.host.SupportsStandard) {
		v.logger.Debug("call not covered by allowed-calls list",
			"caller", caller, "target", op.Target, "callType", restricted)

		return &CallNotAllowedError{
			Address:  caller,
			Target:   op.Target,
			CallType: restricted,
		}
	}

	return nil
}

// verifySetData classifies each key and applies that record's rule. Batches
// stop at the first denied key.
func (v *verifier) verifySetData(caller types.Address, granted Permission, op *Operation) error {
	var index *DataKeyIndex

	for i, key := range op.DataKeys {
		classified := schema.Classify(key)

		if classified.Kind == schema.KindGeneric {
			if granted.Has(PermissionSuperSetData) {
				continue
			}

			if !granted.Has(PermissionSetData) {
				return permissionError(caller, PermissionSetData)
			}

			if index == nil {
				var err error
				if index, err = v.store.AllowedDataKeys(caller); err != nil {
					return err
				}
			}

			if index == nil || !index.Covers(key) {
				return &DataKeyNotAllowedError{Address: caller, Key: key}
			}

			continue
		}

		if err := v.verifyStructuralKey(caller, granted, classified, key, op.DataValues[i]); err != nil {
			return err
		}
	}

	return nil
}

// verifyStructuralKey handles the gateway's own records: permission
// entries, allow-lists, the controller array, ownership and the URD and
// extension mappings. These never fall through to the generic SETDATA rule.
func (v *verifier) verifyStructuralKey(
	caller types.Address,
	granted Permission,
	classified schema.ClassifiedKey,
	key types.Hash,
	value []byte,
) error {
	switch classified.Kind {
	case schema.KindPermissions:
		// a present-but-zero mask counts as absent: granting it anew is
		// adding a controller, not editing one
		_, exists, err := v.store.Permissions(classified.Address)
		if err != nil {
			return err
		}

		return v.requireAddOrEdit(caller, granted, !exists)

	case schema.KindAllowedCalls:
		if err := ValidateAllowedCalls(value); err != nil {
			return err
		}

		return v.requireBit(caller, granted, PermissionEditPermissions)

	case schema.KindAllowedDataKeys:
		if err := ValidateAllowedDataKeys(value); err != nil {
			return err
		}

		return v.requireBit(caller, granted, PermissionEditPermissions)

	case schema.KindControllerArrayLength:
		current, err := v.store.ControllerCount()
		if err != nil {
			return err
		}

		return v.requireAddOrEdit(caller, granted, decodeArrayLength(value) > current)

	case schema.KindControllerArrayIndex:
		current, err := v.store.ControllerAt(classified.Index)
		if err != nil {
			return err
		}

		return v.requireAddOrEdit(caller, granted, current == types.ZeroAddress)

	case schema.KindOwner, schema.KindPendingOwner:
		return v.requireBit(caller, granted, PermissionChangeOwner)

	case schema.KindURD:
		return v.requireEmptyOrChange(caller, granted, key,
			PermissionAddURD, PermissionChangeURD)

	case schema.KindExtension:
		return v.requireEmptyOrChange(caller, granted, key,
			PermissionAddExtensions, PermissionChangeExtensions)
	}

	return &InvalidPayloadError{Reason: "unclassifiable data key"}
}

func (v *verifier) requireBit(caller types.Address, granted Permission, bit Permission) error {
	if !granted.Has(bit) {
		return permissionError(caller, bit)
	}

	return nil
}

func (v *verifier) requireAddOrEdit(caller types.Address, granted Permission, adding bool) error {
	if adding {
		return v.requireBit(caller, granted, PermissionAddController)
	}

	return v.requireBit(caller, granted, PermissionEditPermissions)
}

// requireEmptyOrChange applies the add/change split shared by the URD and
// extension mappings: an empty current value takes the add bit, a populated
// one the change bit.
func (v *verifier) requireEmptyOrChange(
	caller types.Address,
	granted Permission,
	key types.Hash,
	addBit, changeBit Permission,
) error {
	current, err := v.store.host.GetData(key[:])
	if err != nil {
		return err
	}

	if len(current) == 0 {
		return v.requireBit(caller, granted, addBit)
	}

	return v.requireBit(caller, granted, changeBit)
}

// verifyAcceptOwnership: only the announced pending owner may take over,
// and it must already hold CHANGEOWNER as a controller.
func (v *verifier) verifyAcceptOwnership(caller types.Address, granted Permission) error {
	if !granted.Has(PermissionChangeOwner) {
		return permissionError(caller, PermissionChangeOwner)
	}

	pending, err := v.store.PendingOwner()
	if err != nil {
		return err
	}

	if pending == types.ZeroAddress || pending != caller {
		return fmt.Errorf("%w: %s is not the pending owner", ErrAuthorizationDenied, caller)
	}

	return nil
}
