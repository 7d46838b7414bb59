package send

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

var params sendParams

func GetCommand() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:     "send",
		Short:   "Submits a signed relay call to the permission gateway",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(sendCmd)

	return sendCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawEnvelope,
		envelopeFlag,
		"",
		"the hex encoded RLP envelope produced by relay sign",
	)

	cmd.Flags().StringVar(
		&params.rawSignature,
		signatureFlag,
		"",
		"the hex encoded signature produced by relay sign",
	)

	cmd.Flags().Uint64Var(
		&params.nonce,
		nonceFlag,
		0,
		"the signed nonce (channel and sequence)",
	)

	cmd.Flags().Uint64Var(
		&params.notBefore,
		notBeforeFlag,
		0,
		"the signed lower validity bound",
	)

	cmd.Flags().Uint64Var(
		&params.expiresAt,
		expiresAtFlag,
		0,
		"the signed upper validity bound",
	)

	cmd.Flags().StringVar(
		&params.rawValue,
		valueFlag,
		"0",
		"the value attached to the call",
	)

	cmd.Flags().StringVar(
		&params.rawPayload,
		payloadFlag,
		"",
		"the hex encoded payload",
	)

	cmd.MarkFlagsMutuallyExclusive(envelopeFlag, signatureFlag)
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

	call := params.call

	returned, err := gateway.ExecuteRelayCall(call)
	if err != nil {
		outputter.SetError(fmt.Errorf("relay call rejected: %w", err))

		return
	}

	outputter.SetCommandResult(&SendResult{
		Nonce:    call.Nonce,
		Value:    call.Value.String(),
		Returned: "0x" + hex.EncodeToString(returned),
	})
}

type sendParams struct {
	rawEnvelope  string
	rawSignature string
	nonce        uint64
	notBefore    uint64
	expiresAt    uint64
	rawValue     string
	rawPayload   string

	call *types.RelayCall
}

func (p *sendParams) validateFlags() error {
	if p.rawEnvelope != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(p.rawEnvelope, "0x"))
		if err != nil {
			return fmt.Errorf("invalid envelope hex: %w", err)
		}

		call := &types.RelayCall{}
		if err := call.UnmarshalRLP(raw); err != nil {
			return err
		}

		p.call = call

		return nil
	}

	if p.rawSignature == "" {
		return fmt.Errorf("either %s or %s is required", envelopeFlag, signatureFlag)
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(p.rawSignature, "0x"))
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}

	value, ok := new(big.Int).SetString(p.rawValue, 10)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("invalid value %q", p.rawValue)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(p.rawPayload, "0x"))
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}

	p.call = &types.RelayCall{
		Signature: signature,
		Nonce:     p.nonce,
		NotBefore: p.notBefore,
		ExpiresAt: p.expiresAt,
		Value:     value,
		Payload:   payload,
	}

	return nil
}
