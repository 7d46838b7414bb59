package keymanager

import (
	"encoding/binary"

	"github.com/hashicorp/go-multierror"

	"github.com/xgr-network/xgr-keymanager/types"
)

// CallType is the per-entry capability mask of an allowed-calls entry.
type CallType uint32

const (
	CallTypeTransferValue CallType = 1 << iota
	CallTypeCall
	CallTypeStaticCall
	CallTypeDelegateCall
)

func (c CallType) String() string {
	switch c {
	case CallTypeTransferValue:
		return "transfer value to"
	case CallTypeCall:
		return "call"
	case CallTypeStaticCall:
		return "static call"
	case CallTypeDelegateCall:
		return "delegate call"
	}

	return "reach"
}

// AllowedCall is one decoded allow-list entry. A zero value in Target,
// Standard or Selector is the wildcard and matches anything in that
// position. An entry wildcarding all three positions is invalid: it would
// grant unrestricted calling and is rejected at write time.
type AllowedCall struct {
	CallTypes CallType
	Target    types.Address
	Standard  [4]byte
	Selector  [4]byte
}

// allowedCallEntryLength: 4-byte call-type mask ‖ 20-byte target ‖ 4-byte
// standard id ‖ 4-byte selector.
const allowedCallEntryLength = 32

func (c AllowedCall) fullWildcard() bool {
	return c.Target == types.ZeroAddress && c.Standard == [4]byte{} && c.Selector == [4]byte{}
}

type AllowedCalls []AllowedCall

// DecodeAllowedCalls parses a compact bytes array of allowed-call entries.
// The length prefixes must partition the buffer exactly.
func DecodeAllowedCalls(input []byte) (AllowedCalls, error) {
	var list AllowedCalls

	offset := 0
	for index := 0; offset < len(input); index++ {
		entry, next, err := nextCompactEntry("allowed-calls", input, offset, index)
		if err != nil {
			return nil, err
		}

		if len(entry) != allowedCallEntryLength {
			return nil, &MalformedListError{
				List:   "allowed-calls",
				Index:  index,
				Reason: "entry must be exactly 32 bytes",
			}
		}

		ac := AllowedCall{
			CallTypes: CallType(binary.BigEndian.Uint32(entry[:4])),
		}
		copy(ac.Target[:], entry[4:24])
		copy(ac.Standard[:], entry[24:28])
		copy(ac.Selector[:], entry[28:32])

		if ac.CallTypes == 0 {
			return nil, &MalformedListError{
				List:   "allowed-calls",
				Index:  index,
				Reason: "call-type mask is zero",
			}
		}

		if ac.fullWildcard() {
			return nil, &MalformedListError{
				List:   "allowed-calls",
				Index:  index,
				Reason: "target, standard and selector are all wildcarded",
			}
		}

		list = append(list, ac)
		offset = next
	}

	return list, nil
}

// Encode renders the list into its canonical compact form;
// DecodeAllowedCalls(list.Encode()) round-trips for every valid list.
func (l AllowedCalls) Encode() []byte {
	out := make([]byte, 0, len(l)*(2+allowedCallEntryLength))

	for _, c := range l {
		out = binary.BigEndian.AppendUint16(out, allowedCallEntryLength)
		out = binary.BigEndian.AppendUint32(out, uint32(c.CallTypes))
		out = append(out, c.Target[:]...)
		out = append(out, c.Standard[:]...)
		out = append(out, c.Selector[:]...)
	}

	return out
}

// ValidateAllowedCalls is the write-time check: unlike DecodeAllowedCalls it
// reports every broken entry, not just the first one.
func ValidateAllowedCalls(input []byte) error {
	var result *multierror.Error

	offset := 0
	for index := 0; offset < len(input); index++ {
		entry, next, err := nextCompactEntry("allowed-calls", input, offset, index)
		if err != nil {
			// framing is broken; entries past this point cannot be located
			return multierror.Append(result, err).ErrorOrNil()
		}

		if len(entry) != allowedCallEntryLength {
			result = multierror.Append(result, &MalformedListError{
				List:   "allowed-calls",
				Index:  index,
				Reason: "entry must be exactly 32 bytes",
			})
		} else {
			var ac AllowedCall

			ac.CallTypes = CallType(binary.BigEndian.Uint32(entry[:4]))
			copy(ac.Target[:], entry[4:24])
			copy(ac.Standard[:], entry[24:28])
			copy(ac.Selector[:], entry[28:32])

			if ac.CallTypes == 0 {
				result = multierror.Append(result, &MalformedListError{
					List:   "allowed-calls",
					Index:  index,
					Reason: "call-type mask is zero",
				})
			}

			if ac.fullWildcard() {
				result = multierror.Append(result, &MalformedListError{
					List:   "allowed-calls",
					Index:  index,
					Reason: "target, standard and selector are all wildcarded",
				})
			}
		}

		offset = next
	}

	return result.ErrorOrNil()
}

// callQuery is what the verifier matches an operation against.
type callQuery struct {
	callType    CallType
	target      types.Address
	selector    [4]byte
	hasSelector bool
}

// Matches walks the list in order and reports whether any entry covers the
// query. The query's call-type mask may carry several bits (a call moving
// value needs both CALL and TRANSFERVALUE); one entry must grant them all.
// Standard-id positions are resolved through the supports callback against
// the target. A fully wildcarded entry never matches: if legacy data
// slipped one past the write-time check it must not become a free pass.
func (l AllowedCalls) Matches(q callQuery, supports func(types.Address, [4]byte) bool) bool {
	for _, c := range l {
		if c.fullWildcard() {
			continue
		}

		if c.CallTypes&q.callType != q.callType {
			continue
		}

		if c.Target != types.ZeroAddress && c.Target != q.target {
			continue
		}

		if c.Standard != [4]byte{} && !supports(q.target, c.Standard) {
			continue
		}

		if c.Selector != [4]byte{} {
			if !q.hasSelector || c.Selector != q.selector {
				continue
			}
		}

		return true
	}

	return false
}

// nextCompactEntry reads one `(2-byte BE length ‖ payload)` frame of a
// compact bytes array starting at offset.
func nextCompactEntry(list string, input []byte, offset, index int) ([]byte, int, error) {
	if len(input)-offset < 2 {
		return nil, 0, &MalformedListError{
			List:   list,
			Index:  index,
			Reason: "truncated length prefix",
		}
	}

	length := int(binary.BigEndian.Uint16(input[offset : offset+2]))
	start := offset + 2

	if start+length > len(input) {
		return nil, 0, &MalformedListError{
			List:   list,
			Index:  index,
			Reason: "declared length reads past the end of the buffer",
		}
	}

	return input[start : start+length], start + length, nil
}
