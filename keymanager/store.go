package keymanager

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"

	"github.com/xgr-network/xgr-keymanager/crypto"
	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

// allowListCacheSize bounds the decoded allow-list cache. Entries are keyed
// by keccak over (record kind ‖ controller ‖ raw value), so a stale entry
// can never be served after the stored list changes.
const allowListCacheSize = 128

// store is the gateway's data-access layer over the Host's key/value store.
// It knows the schema keys and the value encodings; it holds no policy.
type store struct {
	host  Host
	cache *lru.Cache
}

func newStore(host Host) *store {
	cache, _ := lru.New(allowListCacheSize)

	return &store{host: host, cache: cache}
}

// Permissions returns the controller's decoded bitmask. found is false when
// no entry exists; a stored zero mask also reads back as absent.
func (s *store) Permissions(controller types.Address) (Permission, bool, error) {
	key := schema.PermissionsKey(controller)

	value, err := s.host.GetData(key[:])
	if err != nil {
		return 0, false, err
	}

	p := DecodePermissions(value)

	return p, p != 0, nil
}

func (s *store) SetPermissions(controller types.Address, p Permission) error {
	key := schema.PermissionsKey(controller)

	return s.host.SetData(key[:], EncodePermissions(p))
}

// AllowedCalls returns the controller's decoded allowed-calls list, nil when
// none is stored.
func (s *store) AllowedCalls(controller types.Address) (AllowedCalls, error) {
	key := schema.AllowedCallsKey(controller)

	raw, err := s.host.GetData(key[:])
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, nil
	}

	cacheKey := s.cacheKey(schema.KindAllowedCalls, controller, raw)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(AllowedCalls), nil
	}

	list, err := DecodeAllowedCalls(raw)
	if err != nil {
		return nil, err
	}

	s.cache.Add(cacheKey, list)

	return list, nil
}

// AllowedDataKeys returns the controller's data-key prefix index, nil when
// no list is stored.
func (s *store) AllowedDataKeys(controller types.Address) (*DataKeyIndex, error) {
	key := schema.AllowedDataKeysKey(controller)

	raw, err := s.host.GetData(key[:])
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, nil
	}

	cacheKey := s.cacheKey(schema.KindAllowedDataKeys, controller, raw)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*DataKeyIndex), nil
	}

	list, err := DecodeAllowedDataKeys(raw)
	if err != nil {
		return nil, err
	}

	index := NewDataKeyIndex(list)
	s.cache.Add(cacheKey, index)

	return index, nil
}

func (s *store) cacheKey(kind schema.KeyKind, controller types.Address, raw []byte) types.Hash {
	buf := make([]byte, 0, 1+len(controller)+len(raw))
	buf = append(buf, byte(kind))
	buf = append(buf, controller[:]...)
	buf = append(buf, raw...)

	return crypto.Keccak256Hash(buf)
}

// ControllerCount reads the controller array length, zero when unset.
func (s *store) ControllerCount() (uint64, error) {
	value, err := s.host.GetData(schema.ControllerArrayKey[:])
	if err != nil {
		return 0, err
	}

	return decodeArrayLength(value), nil
}

func (s *store) SetControllerCount(count uint64) error {
	return s.host.SetData(schema.ControllerArrayKey[:], encodeArrayLength(count))
}

// ControllerAt reads the controller address at the given array index. A
// tombstoned slot reads back as the zero address.
func (s *store) ControllerAt(index uint64) (types.Address, error) {
	key := schema.ControllerIndexKey(index)

	value, err := s.host.GetData(key[:])
	if err != nil {
		return types.ZeroAddress, err
	}

	return types.BytesToAddress(value), nil
}

func (s *store) SetControllerAt(index uint64, controller types.Address) error {
	key := schema.ControllerIndexKey(index)

	if controller == types.ZeroAddress {
		return s.host.SetData(key[:], nil)
	}

	return s.host.SetData(key[:], controller[:])
}

// AppendController grows the array by one slot holding controller.
func (s *store) AppendController(controller types.Address) error {
	count, err := s.ControllerCount()
	if err != nil {
		return err
	}

	if err := s.SetControllerAt(count, controller); err != nil {
		return err
	}

	return s.SetControllerCount(count + 1)
}

func (s *store) Owner() (types.Address, error) {
	value, err := s.host.GetData(schema.OwnerKey[:])
	if err != nil {
		return types.ZeroAddress, err
	}

	return types.BytesToAddress(value), nil
}

func (s *store) SetOwner(owner types.Address) error {
	return s.host.SetData(schema.OwnerKey[:], owner[:])
}

func (s *store) PendingOwner() (types.Address, error) {
	value, err := s.host.GetData(schema.PendingOwnerKey[:])
	if err != nil {
		return types.ZeroAddress, err
	}

	return types.BytesToAddress(value), nil
}

func (s *store) SetPendingOwner(owner types.Address) error {
	if owner == types.ZeroAddress {
		return s.host.SetData(schema.PendingOwnerKey[:], nil)
	}

	return s.host.SetData(schema.PendingOwnerKey[:], owner[:])
}

// The controller array length is stored as a 16-byte big-endian word with
// the count in the low 8 bytes.
func decodeArrayLength(value []byte) uint64 {
	if len(value) < 8 {
		var n uint64
		for _, b := range value {
			n = n<<8 | uint64(b)
		}

		return n
	}

	return binary.BigEndian.Uint64(value[len(value)-8:])
}

func encodeArrayLength(count uint64) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[8:], count)

	return out
}
