package nonce

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/types"
)

const (
	signerFlag  = "signer"
	channelFlag = "channel"
)

var params nonceParams

func GetCommand() *cobra.Command {
	nonceCmd := &cobra.Command{
		Use:     "nonce",
		Short:   "Returns the next relay nonce of a signer on a channel",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	helper.RegisterStoreFlags(nonceCmd)
	setFlags(nonceCmd)

	return nonceCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawSigner,
		signerFlag,
		"",
		"the address of the relay signer",
	)

	cmd.Flags().Uint32Var(
		&params.channel,
		channelFlag,
		0,
		"the nonce channel to query",
	)

	_ = cmd.MarkFlagRequired(signerFlag)
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

	nonce, err := gateway.GetNonce(params.signer, params.channel)
	if err != nil {
		outputter.SetError(fmt.Errorf("failed to read the nonce: %w", err))

		return
	}

	_, sequence := keymanager.SplitNonce(nonce)

	outputter.SetCommandResult(&NonceResult{
		Signer:   params.signer.String(),
		Channel:  params.channel,
		Sequence: sequence,
		Nonce:    nonce,
	})
}

type nonceParams struct {
	rawSigner string
	channel   uint32

	signer types.Address
}

func (p *nonceParams) validateFlags() error {
	signer, err := types.ParseAddress(p.rawSigner)
	if err != nil {
		return fmt.Errorf("invalid signer address: %w", err)
	}

	p.signer = signer

	return nil
}
