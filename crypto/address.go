package crypto

import (
	"github.com/umbracle/fastrlp"

	"github.com/xgr-network/xgr-keymanager/types"
)

// CreateAddress derives the deterministic address of a plain deployment:
// the low 20 bytes of keccak256(rlp([deployer, nonce])).
func CreateAddress(deployer types.Address, nonce uint64) types.Address {
	a := &fastrlp.Arena{}

	v := a.NewArray()
	v.Set(a.NewBytes(deployer[:]))
	v.Set(a.NewUint(nonce))

	return types.BytesToAddress(Keccak256(v.MarshalTo(nil)))
}

// CreateAddress2 derives a salted deployment address:
// the low 20 bytes of keccak256(0xff ‖ deployer ‖ salt ‖ keccak256(initCode)).
func CreateAddress2(deployer types.Address, salt types.Hash, initCode []byte) types.Address {
	return types.BytesToAddress(
		Keccak256([]byte{0xff}, deployer[:], salt[:], Keccak256(initCode)),
	)
}
