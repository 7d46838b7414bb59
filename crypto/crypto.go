package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/xgr-network/xgr-keymanager/types"
)

// SignatureLength is the length of an [R ‖ S ‖ V] signature, with V in {0, 1}.
const SignatureLength = 65

var ErrInvalidSignatureLength = errors.New("invalid signature length")

// Keccak256 computes the legacy Keccak-256 digest over the concatenation
// of the given byte slices.
func Keccak256(v ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range v {
		h.Write(b)
	}

	return h.Sum(nil)
}

func Keccak256Hash(v ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(v...))
}

// GenerateECDSAKey creates a new secp256k1 private key.
func GenerateECDSAKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// PubKeyToAddress derives the account address from an uncompressed public
// key: the low 20 bytes of keccak256(pubkey without the 0x04 prefix).
func PubKeyToAddress(pub *btcec.PublicKey) types.Address {
	ser := pub.SerializeUncompressed()

	return types.BytesToAddress(Keccak256(ser[1:]))
}

// Sign produces a 65-byte recoverable [R ‖ S ‖ V] signature over hash.
func Sign(key *btcec.PrivateKey, hash []byte) ([]byte, error) {
	sig, err := btcecdsa.SignCompact(key, hash, false)
	if err != nil {
		return nil, err
	}

	// SignCompact returns [V ‖ R ‖ S] with V in {27, 28};
	// rotate into [R ‖ S ‖ V] with V in {0, 1}
	term := byte(0)
	if sig[0] == 28 {
		term = 1
	}

	return append(sig[1:], term), nil
}

// RecoverPubKey recovers the signing public key from an [R ‖ S ‖ V]
// signature over hash.
func RecoverPubKey(signature, hash []byte) (*btcec.PublicKey, error) {
	if len(signature) != SignatureLength {
		return nil, ErrInvalidSignatureLength
	}

	if v := signature[64]; v != 0 && v != 1 {
		return nil, fmt.Errorf("invalid recovery id %d", signature[64])
	}

	compact := make([]byte, SignatureLength)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])

	pub, _, err := btcecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}

	return pub, nil
}

// RecoverAddress recovers the signer address from an [R ‖ S ‖ V] signature.
func RecoverAddress(signature, hash []byte) (types.Address, error) {
	pub, err := RecoverPubKey(signature, hash)
	if err != nil {
		return types.ZeroAddress, err
	}

	return PubKeyToAddress(pub), nil
}

// MarshalECDSAPrivateKey serializes a private key to its hex form.
func MarshalECDSAPrivateKey(key *btcec.PrivateKey) string {
	return hex.EncodeToString(key.Serialize())
}

// ParseECDSAPrivateKey parses a hex-encoded 32-byte private key.
func ParseECDSAPrivateKey(raw string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key encoding: %w", err)
	}

	if len(b) != 32 {
		return nil, fmt.Errorf("invalid private key length %d", len(b))
	}

	key, _ := btcec.PrivKeyFromBytes(b)

	return key, nil
}
