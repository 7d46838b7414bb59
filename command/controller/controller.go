package controller

import (
	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command/controller/grant"
	"github.com/xgr-network/xgr-keymanager/command/controller/list"
	"github.com/xgr-network/xgr-keymanager/command/controller/revoke"
	"github.com/xgr-network/xgr-keymanager/command/helper"
)

func GetCommand() *cobra.Command {
	controllerCmd := &cobra.Command{
		Use:   "controller",
		Short: "Top level command for inspecting and managing controllers. Only accepts subcommands.",
	}

	helper.RegisterStoreFlags(controllerCmd)

	registerSubcommands(controllerCmd)

	return controllerCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	baseCmd.AddCommand(
		// controller list
		list.GetCommand(),
		// controller grant
		grant.GetCommand(),
		// controller revoke
		revoke.GetCommand(),
	)
}
