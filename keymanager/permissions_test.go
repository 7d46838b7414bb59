package keymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPermissionHas(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		granted := Permission(rapid.Uint64().Draw(t, "granted"))
		required := Permission(rapid.Uint64().Draw(t, "required"))

		assert.Equal(t, granted&required == required, granted.Has(required))
	})
}

func TestAllPermissionsExclusions(t *testing.T) {
	t.Parallel()

	// the dangerous bits are never part of the blanket grant
	assert.False(t, AllPermissions.Has(PermissionDelegateCall))
	assert.False(t, AllPermissions.Has(PermissionSuperDelegateCall))
	assert.False(t, AllPermissions.Has(PermissionReentrancy))

	assert.True(t, AllPermissions.Has(PermissionChangeOwner))
	assert.True(t, AllPermissions.Has(PermissionSuperSetData))
	assert.True(t, AllPermissions.Has(PermissionSign))
}

func TestPermissionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mask     Permission
		expected string
	}{
		{"zero", 0, "NONE"},
		{"all", AllPermissions, "ALL_PERMISSIONS"},
		{"single", PermissionCall, "CALL"},
		{
			"combined",
			PermissionCall | PermissionTransferValue,
			"TRANSFERVALUE|CALL",
		},
		{
			"unknown high bit",
			Permission(1 << 63),
			"UNKNOWN(0x8000000000000000)",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.mask.String())
		})
	}
}

func TestParsePermission(t *testing.T) {
	t.Parallel()

	p, err := ParsePermission("transfervalue")
	require.NoError(t, err)
	assert.Equal(t, PermissionTransferValue, p)

	p, err = ParsePermission("ALL_PERMISSIONS")
	require.NoError(t, err)
	assert.Equal(t, AllPermissions, p)

	_, err = ParsePermission("FLY")
	assert.Error(t, err)
}

func TestPermissionsCodec(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		rapid.Check(t, func(t *rapid.T) {
			p := Permission(rapid.Uint64().Draw(t, "mask"))

			assert.Equal(t, p, DecodePermissions(EncodePermissions(p)))
		})
	})

	t.Run("short value is right aligned", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, PermissionChangeOwner|PermissionAddController,
			DecodePermissions([]byte{0x03}))
	})

	t.Run("zero encodes to nil", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, EncodePermissions(0))
	})

	t.Run("full word", func(t *testing.T) {
		t.Parallel()

		encoded := EncodePermissions(PermissionSign)
		require.Len(t, encoded, 32)
		assert.Equal(t, PermissionSign, DecodePermissions(encoded))
	})
}
