package setup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/chain"
	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
)

var params setupParams

func GetCommand() *cobra.Command {
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Initializes the store from a setup file (owner, controllers, allow lists)",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}

	helper.RegisterStoreFlags(setupCmd)
	setFlags(setupCmd)

	return setupCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.setupPath,
		setupFileFlag,
		command.DefaultSetupFileName,
		"the path to the setup file",
	)
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	setup, err := chain.ImportFromFile(params.setupPath)
	if err != nil {
		outputter.SetError(fmt.Errorf("failed to load setup file: %w", err))

		return
	}

	kv, err := helper.OpenStore(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}
	defer kv.Close()

	if err := setup.Seed(kv); err != nil {
		outputter.SetError(fmt.Errorf("failed to seed the store: %w", err))

		return
	}

	if err := helper.WriteMeta(kv, setup.Account, setup.ChainID); err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(&SetupResult{
		Name:        setup.Name,
		Account:     setup.Account.String(),
		ChainID:     setup.ChainID,
		Owner:       setup.Owner.String(),
		Controllers: len(setup.Controllers),
	})
}
