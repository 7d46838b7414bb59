// Package helper carries the flag plumbing and store access shared by the
// CLI commands.
package helper

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ryanuber/columnize"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/account"
	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/storage"
	"github.com/xgr-network/xgr-keymanager/storage/bolt"
	"github.com/xgr-network/xgr-keymanager/storage/leveldb"
	"github.com/xgr-network/xgr-keymanager/types"
)

// Deployment metadata written at setup time so later commands can rebuild
// the gateway context without re-reading the setup file. The keys live
// outside the 32-byte setData key space.
var (
	metaAccountKey = []byte("META:ACCOUNT_ADDRESS")
	metaChainIDKey = []byte("META:CHAIN_ID")
)

func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get the command results in json format",
	)
}

func RegisterStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		command.StorePathFlag,
		command.DefaultStorePath,
		"the path of the key/value store",
	)

	cmd.PersistentFlags().String(
		command.BackendFlag,
		command.DefaultBackend,
		"the store backend (bolt or leveldb)",
	)
}

// OpenStore opens the key/value store selected by the persistent flags.
// Both backends hold an exclusive file lock, so opening is retried for a
// short while when another command still has the store open.
func OpenStore(cmd *cobra.Command) (storage.KV, error) {
	path, _ := cmd.Flags().GetString(command.StorePathFlag)
	backend, _ := cmd.Flags().GetString(command.BackendFlag)

	var open func() (storage.KV, error)

	switch backend {
	case "bolt":
		open = func() (storage.KV, error) { return bolt.NewBoltKV(path) }
	case "leveldb":
		open = func() (storage.KV, error) { return leveldb.NewLevelDBKV(path) }
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	var kv storage.KV

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(100*time.Millisecond))

	err := retry.Do(cmd.Context(), backoff, func(_ context.Context) error {
		var err error
		if kv, err = open(); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})

	return kv, err
}

// BuildGateway assembles the account host and the key manager on top of an
// initialized store.
func BuildGateway(kv storage.KV) (*keymanager.KeyManager, *account.Account, error) {
	address, chainID, err := ReadMeta(kv)
	if err != nil {
		return nil, nil, err
	}

	host := account.New(kv, &account.Config{
		Address: address,
		ChainID: chainID,
	})

	return keymanager.New(host, &keymanager.Config{}), host, nil
}

// FormatKV formats key value pairs:
//
// Key 1: Value 1
// Key 2: Value 2
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " "

	return columnize.Format(in, columnConf)
}

// FormatList formats a list, wherein each line is a separate item.
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// WriteMeta persists the deployment identity into a freshly seeded store.
func WriteMeta(kv storage.KV, account types.Address, chainID uint64) error {
	if err := kv.Set(metaAccountKey, account.Bytes()); err != nil {
		return err
	}

	var raw [8]byte

	binary.BigEndian.PutUint64(raw[:], chainID)

	return kv.Set(metaChainIDKey, raw[:])
}

// ReadMeta recovers the deployment identity from an initialized store.
func ReadMeta(kv storage.KV) (types.Address, uint64, error) {
	rawAccount, found, err := kv.Get(metaAccountKey)
	if err != nil {
		return types.ZeroAddress, 0, err
	}

	if !found {
		return types.ZeroAddress, 0, fmt.Errorf("store is not initialized, run setup first")
	}

	rawChainID, found, err := kv.Get(metaChainIDKey)
	if err != nil {
		return types.ZeroAddress, 0, err
	}

	if !found || len(rawChainID) != 8 {
		return types.ZeroAddress, 0, fmt.Errorf("store is missing its chain id")
	}

	return types.BytesToAddress(rawAccount), binary.BigEndian.Uint64(rawChainID), nil
}
