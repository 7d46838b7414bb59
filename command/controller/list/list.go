package list

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/storage"
	"github.com/xgr-network/xgr-keymanager/types"
)

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Returns the registered controllers and their permissions",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	kv, err := helper.OpenStore(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}
	defer kv.Close()

	controllers, err := readControllers(kv)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(&ListResult{Controllers: controllers})
}

func readControllers(kv storage.KV) ([]ControllerEntry, error) {
	raw, found, err := kv.Get(schema.ControllerArrayKey[:])
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	if len(raw) != 16 {
		return nil, fmt.Errorf("corrupt controller array record")
	}

	count := binary.BigEndian.Uint64(raw[8:])
	entries := make([]ControllerEntry, 0, count)

	for i := uint64(0); i < count; i++ {
		indexKey := schema.ControllerIndexKey(i)

		rawAddr, found, err := kv.Get(indexKey[:])
		if err != nil {
			return nil, err
		}

		entry := ControllerEntry{Index: i}

		address := types.BytesToAddress(rawAddr)
		if !found || address == types.ZeroAddress {
			// revoked slot, kept so later indices stay stable
			entry.Revoked = true
			entries = append(entries, entry)

			continue
		}

		entry.Address = address.String()

		permKey := schema.PermissionsKey(address)

		rawPerms, found, err := kv.Get(permKey[:])
		if err != nil {
			return nil, err
		}

		if found {
			entry.Permissions = keymanager.DecodePermissions(rawPerms).String()
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
