package keymanager

import (
	"encoding/binary"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/hashicorp/go-multierror"

	"github.com/xgr-network/xgr-keymanager/types"
)

// AllowedDataKeys is a list of key prefixes a controller may write under.
// A prefix of the full 32 bytes pins one exact key; shorter prefixes cover
// every key starting with them.
type AllowedDataKeys [][]byte

const maxDataKeyPrefixLength = 32

// DecodeAllowedDataKeys parses a compact bytes array of data-key prefixes.
func DecodeAllowedDataKeys(input []byte) (AllowedDataKeys, error) {
	var list AllowedDataKeys

	offset := 0
	for index := 0; offset < len(input); index++ {
		entry, next, err := nextCompactEntry("allowed-data-keys", input, offset, index)
		if err != nil {
			return nil, err
		}

		if err := checkDataKeyPrefix(entry, index); err != nil {
			return nil, err
		}

		prefix := make([]byte, len(entry))
		copy(prefix, entry)

		list = append(list, prefix)
		offset = next
	}

	return list, nil
}

// Encode renders the list into its canonical compact form.
func (l AllowedDataKeys) Encode() []byte {
	var out []byte

	for _, prefix := range l {
		out = binary.BigEndian.AppendUint16(out, uint16(len(prefix)))
		out = append(out, prefix...)
	}

	return out
}

// ValidateAllowedDataKeys is the write-time check, reporting every broken
// entry rather than stopping at the first.
func ValidateAllowedDataKeys(input []byte) error {
	var result *multierror.Error

	offset := 0
	for index := 0; offset < len(input); index++ {
		entry, next, err := nextCompactEntry("allowed-data-keys", input, offset, index)
		if err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}

		if err := checkDataKeyPrefix(entry, index); err != nil {
			result = multierror.Append(result, err)
		}

		offset = next
	}

	return result.ErrorOrNil()
}

func checkDataKeyPrefix(entry []byte, index int) error {
	if len(entry) == 0 {
		return &MalformedListError{
			List:   "allowed-data-keys",
			Index:  index,
			Reason: "empty prefix",
		}
	}

	if len(entry) > maxDataKeyPrefixLength {
		return &MalformedListError{
			List:   "allowed-data-keys",
			Index:  index,
			Reason: "prefix longer than 32 bytes",
		}
	}

	return nil
}

// DataKeyIndex answers prefix-coverage queries over an allowed-data-keys
// list. The prefixes are loaded into a radix tree once per list so that
// batched setData payloads pay the decode cost a single time.
type DataKeyIndex struct {
	tree *iradix.Tree
}

func NewDataKeyIndex(list AllowedDataKeys) *DataKeyIndex {
	txn := iradix.New().Txn()
	for _, prefix := range list {
		txn.Insert(prefix, struct{}{})
	}

	return &DataKeyIndex{tree: txn.Commit()}
}

// Covers reports whether any stored prefix is a prefix of key. WalkPath
// visits exactly the tree entries lying on the key's path, which are the
// candidate prefixes.
func (i *DataKeyIndex) Covers(key types.Hash) bool {
	covered := false

	i.tree.Root().WalkPath(key[:], func(k []byte, _ interface{}) bool {
		covered = true

		return true // first hit settles it
	})

	return covered
}

// Empty reports whether the index holds no prefixes at all. Without
// SUPER_SETDATA an empty index denies every non-structural key.
func (i *DataKeyIndex) Empty() bool {
	return i.tree.Len() == 0
}
