package keymanager

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xgr-network/xgr-keymanager/types"
)

// Permission is a bitmask of controller capabilities. Containment is plain
// bitwise AND equality; there is no hierarchy beyond the SUPER_* convention
// checked by the verifier.
type Permission uint64

const (
	PermissionChangeOwner Permission = 1 << iota
	PermissionAddController
	PermissionEditPermissions
	PermissionAddExtensions
	PermissionChangeExtensions
	PermissionAddURD
	PermissionChangeURD
	PermissionReentrancy
	PermissionSuperTransferValue
	PermissionTransferValue
	PermissionSuperCall
	PermissionCall
	PermissionSuperStaticCall
	PermissionStaticCall
	PermissionSuperDelegateCall
	PermissionDelegateCall
	PermissionDeploy
	PermissionSuperSetData
	PermissionSetData
	PermissionEncrypt
	PermissionDecrypt
	PermissionSign

	permissionSentinel
)

// knownPermissions covers every defined bit.
const knownPermissions = permissionSentinel - 1

// AllPermissions is the default full grant: every capability except the
// delegate-call pair and reentrancy, which are never implied and must be
// granted one by one.
const AllPermissions = knownPermissions &^ (PermissionSuperDelegateCall | PermissionDelegateCall | PermissionReentrancy)

var permissionNames = map[Permission]string{
	PermissionChangeOwner:        "CHANGEOWNER",
	PermissionAddController:      "ADDCONTROLLER",
	PermissionEditPermissions:    "EDITPERMISSIONS",
	PermissionAddExtensions:      "ADDEXTENSIONS",
	PermissionChangeExtensions:   "CHANGEEXTENSIONS",
	PermissionAddURD:             "ADDUNIVERSALRECEIVERDELEGATE",
	PermissionChangeURD:          "CHANGEUNIVERSALRECEIVERDELEGATE",
	PermissionReentrancy:         "REENTRANCY",
	PermissionSuperTransferValue: "SUPER_TRANSFERVALUE",
	PermissionTransferValue:      "TRANSFERVALUE",
	PermissionSuperCall:          "SUPER_CALL",
	PermissionCall:               "CALL",
	PermissionSuperStaticCall:    "SUPER_STATICCALL",
	PermissionStaticCall:         "STATICCALL",
	PermissionSuperDelegateCall:  "SUPER_DELEGATECALL",
	PermissionDelegateCall:       "DELEGATECALL",
	PermissionDeploy:             "DEPLOY",
	PermissionSuperSetData:       "SUPER_SETDATA",
	PermissionSetData:            "SETDATA",
	PermissionEncrypt:            "ENCRYPT",
	PermissionDecrypt:            "DECRYPT",
	PermissionSign:               "SIGN",
}

// Has reports whether every bit in required is granted.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

// HasAny reports whether at least one bit in required is granted.
func (p Permission) HasAny(required Permission) bool {
	return p&required != 0
}

func (p Permission) Add(grant Permission) Permission {
	return p | grant
}

func (p Permission) Remove(revoke Permission) Permission {
	return p &^ revoke
}

func (p Permission) String() string {
	if p == 0 {
		return "NONE"
	}

	if p == AllPermissions {
		return "ALL_PERMISSIONS"
	}

	bits := make([]Permission, 0, len(permissionNames))
	for bit := range permissionNames {
		if p.Has(bit) {
			bits = append(bits, bit)
		}
	}

	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	names := make([]string, 0, len(bits)+1)
	for _, bit := range bits {
		names = append(names, permissionNames[bit])
	}

	if unknown := p &^ knownPermissions; unknown != 0 {
		names = append(names, fmt.Sprintf("UNKNOWN(%#x)", uint64(unknown)))
	}

	return strings.Join(names, "|")
}

// ParsePermission resolves a single capability name, e.g. for CLI input.
func ParsePermission(name string) (Permission, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))

	if upper == "ALL_PERMISSIONS" {
		return AllPermissions, nil
	}

	for bit, n := range permissionNames {
		if n == upper {
			return bit, nil
		}
	}

	return 0, fmt.Errorf("unknown permission %q", name)
}

// permissionWordLength is the stored width of a bitmask: one 32-byte
// big-endian word, the low 8 bytes of which carry the defined bits.
const permissionWordLength = 32

// DecodePermissions reads a stored bitmask value. Values shorter than a full
// word are accepted as right-aligned; bits beyond the low 64 are dropped
// (they can never satisfy a requirement anyway).
func DecodePermissions(value []byte) Permission {
	var p Permission

	start := 0
	if len(value) > 8 {
		start = len(value) - 8
	}

	for _, b := range value[start:] {
		p = p<<8 | Permission(b)
	}

	return p
}

// EncodePermissions renders a bitmask into its stored 32-byte form.
// The zero mask encodes to nil, which deletes the entry.
func EncodePermissions(p Permission) []byte {
	if p == 0 {
		return nil
	}

	out := make([]byte, permissionWordLength)
	for i := 0; i < 8; i++ {
		out[permissionWordLength-1-i] = byte(p >> (8 * i))
	}

	return out
}

// permissionError is a convenience for building the deny error carrying the
// missing capability.
func permissionError(addr types.Address, missing Permission) error {
	return &NotAuthorisedError{Address: addr, Missing: missing}
}
