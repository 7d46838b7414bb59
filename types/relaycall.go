package types

import (
	"fmt"
	"math/big"

	"github.com/umbracle/fastrlp"
)

// RelayCall is the off-band envelope a relayer submits to the gateway: a
// signature over the gateway's relay digest plus the signed parameters.
// The RLP layout is [signature, nonce, notBefore, expiresAt, value, payload]
// and is what relay tooling writes to disk and ships between parties.
type RelayCall struct {
	Signature []byte
	Nonce     uint64

	// Validity window as unix seconds. Zero means unbounded on that side.
	NotBefore uint64
	ExpiresAt uint64

	Value   *big.Int
	Payload []byte
}

const relayCallElems = 6

func (r *RelayCall) MarshalRLP() []byte {
	return r.MarshalRLPTo(nil)
}

func (r *RelayCall) MarshalRLPTo(dst []byte) []byte {
	ar := &fastrlp.Arena{}

	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(r.Signature))
	vv.Set(ar.NewUint(r.Nonce))
	vv.Set(ar.NewUint(r.NotBefore))
	vv.Set(ar.NewUint(r.ExpiresAt))

	if r.Value == nil {
		vv.Set(ar.NewBigInt(big.NewInt(0)))
	} else {
		vv.Set(ar.NewBigInt(r.Value))
	}

	vv.Set(ar.NewCopyBytes(r.Payload))

	return vv.MarshalTo(dst)
}

func (r *RelayCall) UnmarshalRLP(input []byte) error {
	pr := &fastrlp.Parser{}

	vv, err := pr.Parse(input)
	if err != nil {
		return err
	}

	elems, err := vv.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != relayCallElems {
		return fmt.Errorf("invalid relay call envelope: expected %d elements, got %d", relayCallElems, len(elems))
	}

	if r.Signature, err = elems[0].GetBytes(r.Signature[:0]); err != nil {
		return fmt.Errorf("invalid relay call signature: %w", err)
	}

	if r.Nonce, err = elems[1].GetUint64(); err != nil {
		return fmt.Errorf("invalid relay call nonce: %w", err)
	}

	if r.NotBefore, err = elems[2].GetUint64(); err != nil {
		return fmt.Errorf("invalid relay call notBefore: %w", err)
	}

	if r.ExpiresAt, err = elems[3].GetUint64(); err != nil {
		return fmt.Errorf("invalid relay call expiresAt: %w", err)
	}

	r.Value = new(big.Int)
	if err = elems[4].GetBigInt(r.Value); err != nil {
		return fmt.Errorf("invalid relay call value: %w", err)
	}

	if r.Payload, err = elems[5].GetBytes(r.Payload[:0]); err != nil {
		return fmt.Errorf("invalid relay call payload: %w", err)
	}

	return nil
}
