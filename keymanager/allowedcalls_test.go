package keymanager

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xgr-network/xgr-keymanager/types"
)

func TestAllowedCallsRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 8).Draw(t, "count")

		var list AllowedCalls
		for i := 0; i < count; i++ {
			entry := AllowedCall{
				CallTypes: CallType(rapid.Uint32Range(1, 0xf).Draw(t, "mask")),
			}

			// keep at least one match field non-wildcard
			entry.Target[19] = byte(rapid.IntRange(1, 255).Draw(t, "target"))

			if rapid.Bool().Draw(t, "standard") {
				entry.Standard = [4]byte{0xca, 0xfe, 0xca, 0xfe}
			}

			if rapid.Bool().Draw(t, "selector") {
				entry.Selector = [4]byte{0xde, 0xad, 0xbe, 0xef}
			}

			list = append(list, entry)
		}

		decoded, err := DecodeAllowedCalls(list.Encode())
		require.NoError(t, err)
		assert.Equal(t, list, decoded)
	})
}

func TestDecodeAllowedCallsMalformed(t *testing.T) {
	t.Parallel()

	wildcardEntry := func(mask uint32) []byte {
		out := binary.BigEndian.AppendUint16(nil, 32)
		out = binary.BigEndian.AppendUint32(out, mask)

		return append(out, make([]byte, 28)...)
	}

	valid := (AllowedCalls{{
		CallTypes: CallTypeCall,
		Target:    types.StringToAddress("0xff"),
	}}).Encode()

	tests := []struct {
		name  string
		input []byte
	}{
		{"truncated length prefix", []byte{0x00}},
		{"length overruns buffer", []byte{0x00, 0x20, 0x01}},
		{"entry too short", []byte{0x00, 0x02, 0x01, 0x02}},
		{"zero call-type mask", wildcardEntry(0)},
		{"fully wildcarded entry", wildcardEntry(uint32(CallTypeCall))},
		{"trailing garbage after valid entry", append(valid, 0xff)},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeAllowedCalls(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructural))
		})
	}
}

func TestValidateAllowedCallsAggregates(t *testing.T) {
	t.Parallel()

	// two bad entries, both reported
	input := binary.BigEndian.AppendUint16(nil, 32)
	input = append(input, make([]byte, 32)...) // zero mask, fully wildcarded
	input = binary.BigEndian.AppendUint16(input, 3)
	input = append(input, 1, 2, 3) // wrong length

	err := ValidateAllowedCalls(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call-type mask is zero")
	assert.Contains(t, err.Error(), "entry must be exactly 32 bytes")

	assert.NoError(t, ValidateAllowedCalls(nil))
}

func TestAllowedCallsMatches(t *testing.T) {
	t.Parallel()

	target := types.StringToAddress("0x1111")
	other := types.StringToAddress("0x2222")
	standard := [4]byte{0xca, 0xfe, 0xca, 0xfe}
	selector := [4]byte{0xde, 0xad, 0xbe, 0xef}

	noStandards := func(types.Address, [4]byte) bool { return false }
	hasStandard := func(addr types.Address, id [4]byte) bool {
		return addr == target && id == standard
	}

	t.Run("target pinned, rest wildcard", func(t *testing.T) {
		t.Parallel()

		list := AllowedCalls{{CallTypes: CallTypeTransferValue, Target: target}}

		assert.True(t, list.Matches(callQuery{
			callType: CallTypeTransferValue, target: target,
		}, noStandards))
		assert.False(t, list.Matches(callQuery{
			callType: CallTypeTransferValue, target: other,
		}, noStandards))
		assert.False(t, list.Matches(callQuery{
			callType: CallTypeCall, target: target,
		}, noStandards))
	})

	t.Run("multi-bit query needs one covering entry", func(t *testing.T) {
		t.Parallel()

		split := AllowedCalls{
			{CallTypes: CallTypeCall, Target: target},
			{CallTypes: CallTypeTransferValue, Target: target},
		}
		combined := AllowedCalls{
			{CallTypes: CallTypeCall | CallTypeTransferValue, Target: target},
		}

		query := callQuery{
			callType: CallTypeCall | CallTypeTransferValue,
			target:   target,
		}

		assert.False(t, split.Matches(query, noStandards))
		assert.True(t, combined.Matches(query, noStandards))
	})

	t.Run("standard resolved through host", func(t *testing.T) {
		t.Parallel()

		list := AllowedCalls{{CallTypes: CallTypeCall, Standard: standard}}

		assert.True(t, list.Matches(callQuery{
			callType: CallTypeCall, target: target,
		}, hasStandard))
		assert.False(t, list.Matches(callQuery{
			callType: CallTypeCall, target: other,
		}, hasStandard))
	})

	t.Run("selector pinned", func(t *testing.T) {
		t.Parallel()

		list := AllowedCalls{{CallTypes: CallTypeCall, Target: target, Selector: selector}}

		assert.True(t, list.Matches(callQuery{
			callType: CallTypeCall, target: target,
			selector: selector, hasSelector: true,
		}, noStandards))

		// no selector in the call data cannot satisfy a pinned selector
		assert.False(t, list.Matches(callQuery{
			callType: CallTypeCall, target: target,
		}, noStandards))
	})

	t.Run("legacy full wildcard is never a free pass", func(t *testing.T) {
		t.Parallel()

		list := AllowedCalls{{CallTypes: CallTypeCall}}

		assert.False(t, list.Matches(callQuery{
			callType: CallTypeCall, target: target,
		}, noStandards))
	})

	t.Run("empty list matches nothing", func(t *testing.T) {
		t.Parallel()

		assert.False(t, AllowedCalls(nil).Matches(callQuery{
			callType: CallTypeCall, target: target,
		}, noStandards))
	})
}
