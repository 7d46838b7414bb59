// Package chain holds the gateway's setup configuration: chain identity and
// the initial controller set a fresh store is seeded with.
package chain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/storage"
	"github.com/xgr-network/xgr-keymanager/types"
)

// Setup is the deployment description. It plays the role a genesis file
// plays for a chain: everything needed to initialize an empty store.
type Setup struct {
	Name        string        `mapstructure:"name"`
	ChainID     uint64        `mapstructure:"chain_id"`
	Account     types.Address `mapstructure:"account"`
	Owner       types.Address `mapstructure:"owner"`
	Controllers []Controller  `mapstructure:"controllers"`
}

type Controller struct {
	Address         types.Address `mapstructure:"address"`
	Permissions     []string      `mapstructure:"permissions"`
	AllowedCalls    []AllowedCall `mapstructure:"allowed_calls"`
	AllowedDataKeys []string      `mapstructure:"allowed_data_keys"`
}

// AllowedCall mirrors one allow-list entry in config form. Empty fields
// stay wildcards.
type AllowedCall struct {
	CallTypes []string `mapstructure:"call_types"`
	Target    string   `mapstructure:"target"`
	Standard  string   `mapstructure:"standard"`
	Selector  string   `mapstructure:"selector"`
}

// ImportFromFile reads and decodes a YAML setup file.
func ImportFromFile(path string) (*Setup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("invalid setup file %s: %w", path, err)
	}

	setup := &Setup{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      setup,
		ErrorUnused: true,
		DecodeHook:  addressDecodeHook,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(tree); err != nil {
		return nil, fmt.Errorf("invalid setup file %s: %w", path, err)
	}

	if err := setup.validate(); err != nil {
		return nil, fmt.Errorf("invalid setup file %s: %w", path, err)
	}

	return setup, nil
}

func addressDecodeHook(from, to reflect.Type, value interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(types.Address{}) {
		return value, nil
	}

	return types.ParseAddress(value.(string))
}

func (s *Setup) validate() error {
	if s.ChainID == 0 {
		return fmt.Errorf("chain_id must be set")
	}

	seen := map[types.Address]struct{}{}

	for _, c := range s.Controllers {
		if c.Address == types.ZeroAddress {
			return fmt.Errorf("controller address must be set")
		}

		if _, dup := seen[c.Address]; dup {
			return fmt.Errorf("duplicate controller %s", c.Address)
		}

		seen[c.Address] = struct{}{}

		if len(c.Permissions) == 0 {
			return fmt.Errorf("controller %s has no permissions", c.Address)
		}
	}

	return nil
}

// Seed writes the initial records into an empty store: owner, controller
// array, per-controller bitmasks and allow-lists.
func (s *Setup) Seed(kv storage.KV) error {
	if s.Owner != types.ZeroAddress {
		if err := kv.Set(schema.OwnerKey[:], s.Owner[:]); err != nil {
			return err
		}
	}

	for i, c := range s.Controllers {
		mask, err := parsePermissions(c.Permissions)
		if err != nil {
			return fmt.Errorf("controller %s: %w", c.Address, err)
		}

		permKey := schema.PermissionsKey(c.Address)
		if err := kv.Set(permKey[:], keymanager.EncodePermissions(mask)); err != nil {
			return err
		}

		indexKey := schema.ControllerIndexKey(uint64(i))
		if err := kv.Set(indexKey[:], c.Address[:]); err != nil {
			return err
		}

		if err := s.seedAllowLists(kv, c); err != nil {
			return fmt.Errorf("controller %s: %w", c.Address, err)
		}
	}

	var count [16]byte

	binary.BigEndian.PutUint64(count[8:], uint64(len(s.Controllers)))

	return kv.Set(schema.ControllerArrayKey[:], count[:])
}

func (s *Setup) seedAllowLists(kv storage.KV, c Controller) error {
	if len(c.AllowedCalls) > 0 {
		list, err := buildAllowedCalls(c.AllowedCalls)
		if err != nil {
			return err
		}

		key := schema.AllowedCallsKey(c.Address)
		if err := kv.Set(key[:], list.Encode()); err != nil {
			return err
		}
	}

	if len(c.AllowedDataKeys) > 0 {
		list, err := buildAllowedDataKeys(c.AllowedDataKeys)
		if err != nil {
			return err
		}

		key := schema.AllowedDataKeysKey(c.Address)
		if err := kv.Set(key[:], list.Encode()); err != nil {
			return err
		}
	}

	return nil
}

func parsePermissions(names []string) (keymanager.Permission, error) {
	var mask keymanager.Permission

	for _, name := range names {
		bit, err := keymanager.ParsePermission(name)
		if err != nil {
			return 0, err
		}

		mask = mask.Add(bit)
	}

	return mask, nil
}

func buildAllowedCalls(entries []AllowedCall) (keymanager.AllowedCalls, error) {
	list := make(keymanager.AllowedCalls, 0, len(entries))

	for _, e := range entries {
		var entry keymanager.AllowedCall

		for _, name := range e.CallTypes {
			bit, err := parseCallType(name)
			if err != nil {
				return nil, err
			}

			entry.CallTypes |= bit
		}

		if e.Target != "" {
			target, err := types.ParseAddress(e.Target)
			if err != nil {
				return nil, err
			}

			entry.Target = target
		}

		if err := parseHex4(e.Standard, &entry.Standard); err != nil {
			return nil, fmt.Errorf("invalid standard id %q: %w", e.Standard, err)
		}

		if err := parseHex4(e.Selector, &entry.Selector); err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", e.Selector, err)
		}

		list = append(list, entry)
	}

	// reuse the write-time validation so a bad config fails like a bad
	// setData would
	if err := keymanager.ValidateAllowedCalls(list.Encode()); err != nil {
		return nil, err
	}

	return list, nil
}

func buildAllowedDataKeys(prefixes []string) (keymanager.AllowedDataKeys, error) {
	list := make(keymanager.AllowedDataKeys, 0, len(prefixes))

	for _, p := range prefixes {
		raw, err := hex.DecodeString(strings.TrimPrefix(p, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid data key prefix %q: %w", p, err)
		}

		list = append(list, raw)
	}

	if err := keymanager.ValidateAllowedDataKeys(list.Encode()); err != nil {
		return nil, err
	}

	return list, nil
}

func parseCallType(name string) (keymanager.CallType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "transfer-value", "transfervalue":
		return keymanager.CallTypeTransferValue, nil
	case "call":
		return keymanager.CallTypeCall, nil
	case "static-call", "staticcall":
		return keymanager.CallTypeStaticCall, nil
	case "delegate-call", "delegatecall":
		return keymanager.CallTypeDelegateCall, nil
	}

	return 0, fmt.Errorf("unknown call type %q", name)
}

func parseHex4(raw string, out *[4]byte) error {
	if raw == "" {
		return nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return err
	}

	if len(b) != 4 {
		return fmt.Errorf("want 4 bytes, got %d", len(b))
	}

	copy(out[:], b)

	return nil
}
