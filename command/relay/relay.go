package relay

import (
	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/command/relay/send"
	"github.com/xgr-network/xgr-keymanager/command/relay/sign"
)

func GetCommand() *cobra.Command {
	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Top level command for meta transactions. Only accepts subcommands.",
	}

	helper.RegisterStoreFlags(relayCmd)

	registerSubcommands(relayCmd)

	return relayCmd
}

func registerSubcommands(baseCmd *cobra.Command) {
	baseCmd.AddCommand(
		// relay sign
		sign.GetCommand(),
		// relay send
		send.GetCommand(),
	)
}
