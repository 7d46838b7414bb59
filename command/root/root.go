package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command/controller"
	"github.com/xgr-network/xgr-keymanager/command/execute"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/command/keygen"
	"github.com/xgr-network/xgr-keymanager/command/nonce"
	"github.com/xgr-network/xgr-keymanager/command/relay"
	"github.com/xgr-network/xgr-keymanager/command/setup"
	"github.com/xgr-network/xgr-keymanager/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Short: "The key manager is a permission gateway guarding an account's assets and data",
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		setup.GetCommand(),
		keygen.GetCommand(),
		nonce.GetCommand(),
		controller.GetCommand(),
		execute.GetCommand(),
		relay.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
