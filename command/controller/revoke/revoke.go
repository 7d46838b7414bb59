package revoke

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

var params revokeParams

func GetCommand() *cobra.Command {
	revokeCmd := &cobra.Command{
		Use:     "revoke",
		Short:   "Clears a controller's permissions, subject to the caller's own permissions",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(revokeCmd)

	return revokeCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawCaller,
		callerFlag,
		"",
		"the address the revocation is executed as",
	)

	cmd.Flags().StringVar(
		&params.rawController,
		controllerFlag,
		"",
		"the controller losing its permissions",
	)

	_ = cmd.MarkFlagRequired(callerFlag)
	_ = cmd.MarkFlagRequired(controllerFlag)
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return params.validateFlags()
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

	gateway, _, err := helper.BuildGateway(kv)
	if err != nil {
		outputter.SetError(err)

		return
	}

	// a zero mask tombstones the controller's array slot as well
	payload := keymanager.EncodeSetData(
		schema.PermissionsKey(params.controller),
		keymanager.EncodePermissions(0),
	)

	if _, err := gateway.Execute(params.caller, big.NewInt(0), payload); err != nil {
		outputter.SetError(fmt.Errorf("revocation rejected: %w", err))

		return
	}

	outputter.SetCommandResult(&RevokeResult{
		Caller:     params.caller.String(),
		Controller: params.controller.String(),
	})
}

type revokeParams struct {
	rawCaller     string
	rawController string

	caller     types.Address
	controller types.Address
}

func (p *revokeParams) validateFlags() error {
	caller, err := types.ParseAddress(p.rawCaller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	controller, err := types.ParseAddress(p.rawController)
	if err != nil {
		return fmt.Errorf("invalid controller address: %w", err)
	}

	p.caller = caller
	p.controller = controller

	return nil
}
