package grant

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/schema"
	"github.com/xgr-network/xgr-keymanager/types"
)

var params grantParams

func GetCommand() *cobra.Command {
	grantCmd := &cobra.Command{
		Use:     "grant",
		Short:   "Grants a permission set to a controller, subject to the caller's own permissions",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(grantCmd)

	return grantCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawCaller,
		callerFlag,
		"",
		"the address the grant is executed as",
	)

	cmd.Flags().StringVar(
		&params.rawController,
		controllerFlag,
		"",
		"the controller receiving the permissions",
	)

	cmd.Flags().StringSliceVar(
		&params.rawPermissions,
		permissionsFlag,
		nil,
		"the permission names to grant (repeatable or comma separated)",
	)

	_ = cmd.MarkFlagRequired(callerFlag)
	_ = cmd.MarkFlagRequired(controllerFlag)
	_ = cmd.MarkFlagRequired(permissionsFlag)
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

	payload := keymanager.EncodeSetData(
		schema.PermissionsKey(params.controller),
		keymanager.EncodePermissions(params.permissions),
	)

	if _, err := gateway.Execute(params.caller, big.NewInt(0), payload); err != nil {
		outputter.SetError(fmt.Errorf("grant rejected: %w", err))

		return
	}

	outputter.SetCommandResult(&GrantResult{
		Caller:      params.caller.String(),
		Controller:  params.controller.String(),
		Permissions: params.permissions.String(),
	})
}

type grantParams struct {
	rawCaller      string
	rawController  string
	rawPermissions []string

	caller      types.Address
	controller  types.Address
	permissions keymanager.Permission
}

func (p *grantParams) validateFlags() error {
	caller, err := types.ParseAddress(p.rawCaller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	controller, err := types.ParseAddress(p.rawController)
	if err != nil {
		return fmt.Errorf("invalid controller address: %w", err)
	}

	var permissions keymanager.Permission

	for _, name := range p.rawPermissions {
		permission, err := keymanager.ParsePermission(strings.TrimSpace(name))
		if err != nil {
			return err
		}

		permissions |= permission
	}

	if permissions == 0 {
		return fmt.Errorf("at least one permission is required")
	}

	p.caller = caller
	p.controller = controller
	p.permissions = permissions

	return nil
}
