package execute

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/types"
)

var params executeParams

func GetCommand() *cobra.Command {
	executeCmd := &cobra.Command{
		Use:     "execute",
		Short:   "Runs one ABI-encoded payload through the permission gateway",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	helper.RegisterStoreFlags(executeCmd)
	setFlags(executeCmd)

	return executeCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawCaller,
		callerFlag,
		"",
		"the address the payload is executed as",
	)

	cmd.Flags().StringVar(
		&params.rawValue,
		valueFlag,
		"0",
		"the value attached to the request",
	)

	cmd.Flags().StringVar(
		&params.rawPayload,
		payloadFlag,
		"",
		"the hex encoded payload (execute, setData, ownership)",
	)

	_ = cmd.MarkFlagRequired(callerFlag)
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

	returned, err := gateway.Execute(params.caller, params.value, params.payload)
	if err != nil {
		outputter.SetError(fmt.Errorf("execution rejected: %w", err))

		return
	}

	outputter.SetCommandResult(&ExecuteResult{
		Caller:   params.caller.String(),
		Value:    params.value.String(),
		Returned: "0x" + hex.EncodeToString(returned),
	})
}

type executeParams struct {
	rawCaller  string
	rawValue   string
	rawPayload string

	caller  types.Address
	value   *big.Int
	payload []byte
}

func (p *executeParams) validateFlags() error {
	caller, err := types.ParseAddress(p.rawCaller)
	if err != nil {
		return fmt.Errorf("invalid caller address: %w", err)
	}

	value, ok := new(big.Int).SetString(p.rawValue, 10)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("invalid value %q", p.rawValue)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(p.rawPayload, "0x"))
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}

	p.caller = caller
	p.value = value
	p.payload = payload

	return nil
}
