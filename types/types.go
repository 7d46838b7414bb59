package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// Hash is a 32-byte word, used both for digests and for store data keys.
type Hash [HashLength]byte

var (
	ZeroAddress = Address{}
	ZeroHash    = Hash{}
)

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) Ptr() *Address {
	return &a
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// BytesToAddress sets b into an address, left-truncating or left-padding
// so that the low-order bytes are kept.
func BytesToAddress(b []byte) Address {
	var a Address

	size := len(b)
	min := min(size, AddressLength)

	copy(a[AddressLength-min:], b[size-min:])

	return a
}

// StringToAddress parses a hex string (with or without 0x prefix).
// Malformed input yields the zero address.
func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[size-min:])

	return h
}

func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

func stringToBytes(str string) []byte {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}

	b, _ := hex.DecodeString(str)

	return b
}

// ParseAddress is the strict variant of StringToAddress: the input must be
// exactly 20 hex-encoded bytes.
func ParseAddress(str string) (Address, error) {
	raw := strings.TrimPrefix(str, "0x")

	b, err := hex.DecodeString(raw)
	if err != nil {
		return ZeroAddress, fmt.Errorf("invalid address %q: %w", str, err)
	}

	if len(b) != AddressLength {
		return ZeroAddress, fmt.Errorf("invalid address %q: expected %d bytes, got %d", str, AddressLength, len(b))
	}

	return BytesToAddress(b), nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(input []byte) error {
	addr, err := ParseAddress(string(input))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(input []byte) error {
	raw := strings.TrimPrefix(string(input), "0x")

	b, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}

	if len(b) != HashLength {
		return fmt.Errorf("invalid hash %q: expected %d bytes, got %d", input, HashLength, len(b))
	}

	*h = BytesToHash(b)

	return nil
}
