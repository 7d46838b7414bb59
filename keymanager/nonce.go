package keymanager

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

// Relay nonces are 64 bits wide: the high 32 bits select a channel, the low
// 32 bits are that channel's sequence counter. Channels are independent, so
// out-of-order submission works across channels while each single channel
// stays strictly sequential.

// SplitNonce breaks a presented nonce into channel and sequence.
func SplitNonce(nonce uint64) (channel uint32, sequence uint32) {
	return uint32(nonce >> 32), uint32(nonce)
}

// JoinNonce rebuilds the wire nonce from channel and sequence.
func JoinNonce(channel uint32, sequence uint32) uint64 {
	return uint64(channel)<<32 | uint64(sequence)
}

// nonceGuard persists one sequence counter per (signer, channel) pair under
// a schema key that setData payloads cannot reach.
type nonceGuard struct {
	host Host
}

// Current returns the next valid nonce on the signer's channel.
func (g *nonceGuard) Current(signer types.Address, channel uint32) (uint64, error) {
	sequence, err := g.sequence(signer, channel)
	if err != nil {
		return 0, err
	}

	if sequence > math.MaxUint32 {
		return 0, exhaustedChannelError(signer, channel)
	}

	return JoinNonce(channel, uint32(sequence)), nil
}

// Consume accepts the presented nonce iff it equals the current value of
// its channel, then advances that channel by one. Other channels are
// untouched.
func (g *nonceGuard) Consume(signer types.Address, presented uint64) error {
	channel, _ := SplitNonce(presented)

	sequence, err := g.sequence(signer, channel)
	if err != nil {
		return err
	}

	// the stored counter is 64 bits wide so a spent channel stays spent
	// instead of wrapping back to sequence zero
	if sequence > math.MaxUint32 {
		return exhaustedChannelError(signer, channel)
	}

	expected := JoinNonce(channel, uint32(sequence))
	if presented != expected {
		return &InvalidNonceError{
			Signer:    signer,
			Presented: presented,
			Expected:  expected,
		}
	}

	var next [8]byte

	binary.BigEndian.PutUint64(next[:], sequence+1)

	return g.host.SetData(schema.NonceKey(signer, channel), next[:])
}

func (g *nonceGuard) sequence(signer types.Address, channel uint32) (uint64, error) {
	value, err := g.host.GetData(schema.NonceKey(signer, channel))
	if err != nil {
		return 0, err
	}

	if len(value) == 0 {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, &InvalidPayloadError{Reason: "corrupt nonce record"}
	}

	return binary.BigEndian.Uint64(value[:]), nil
}

func exhaustedChannelError(signer types.Address, channel uint32) error {
	return fmt.Errorf("%w: channel %d of %s has no sequence numbers left", ErrReplay, channel, signer)
}
