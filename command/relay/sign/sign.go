package sign

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/crypto"
	"github.com/xgr-network/xgr-keymanager/keymanager"
	"github.com/xgr-network/xgr-keymanager/types"
)

var params signParams

func GetCommand() *cobra.Command {
	signCmd := &cobra.Command{
		Use:     "sign",
		Short:   "Signs a relay call for the store's account, using the next nonce on the channel",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(signCmd)

	return signCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawKey,
		keyFlag,
		"",
		"the hex encoded private key of the relay signer",
	)

	cmd.Flags().Uint32Var(
		&params.channel,
		channelFlag,
		0,
		"the nonce channel to sign on",
	)

	cmd.Flags().Uint64Var(
		&params.notBefore,
		notBeforeFlag,
		0,
		"unix time the call becomes valid at (0 for unbounded)",
	)

	cmd.Flags().Uint64Var(
		&params.expiresAt,
		expiresAtFlag,
		0,
		"unix time the call expires at (0 for unbounded)",
	)

	cmd.Flags().StringVar(
		&params.rawValue,
		valueFlag,
		"0",
		"the value the call attaches",
	)

	cmd.Flags().StringVar(
		&params.rawPayload,
		payloadFlag,
		"",
		"the hex encoded payload to sign over",
	)

	_ = cmd.MarkFlagRequired(keyFlag)
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

	gateway, host, err := helper.BuildGateway(kv)
	if err != nil {
		outputter.SetError(err)

		return
	}

	signer := crypto.PubKeyToAddress(params.key.PubKey())

	nonce, err := gateway.GetNonce(signer, params.channel)
	if err != nil {
		outputter.SetError(fmt.Errorf("failed to read the nonce: %w", err))

		return
	}

	call := &types.RelayCall{
		Nonce:     nonce,
		NotBefore: params.notBefore,
		ExpiresAt: params.expiresAt,
		Value:     params.value,
		Payload:   params.payload,
	}

	if err := keymanager.SignRelayCall(params.key, host.Address(), host.ChainID(), call); err != nil {
		outputter.SetError(fmt.Errorf("failed to sign the call: %w", err))

		return
	}

	digest := keymanager.RelayDigest(host.Address(), host.ChainID(), call)

	outputter.SetCommandResult(&SignResult{
		Signer:    signer.String(),
		Nonce:     call.Nonce,
		Digest:    digest.String(),
		Signature: "0x" + hex.EncodeToString(call.Signature),
		Envelope:  "0x" + hex.EncodeToString(call.MarshalRLP()),
	})
}

type signParams struct {
	rawKey     string
	channel    uint32
	notBefore  uint64
	expiresAt  uint64
	rawValue   string
	rawPayload string

	key     *btcec.PrivateKey
	value   *big.Int
	payload []byte
}

func (p *signParams) validateFlags() error {
	key, err := crypto.ParseECDSAPrivateKey(p.rawKey)
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	value, ok := new(big.Int).SetString(p.rawValue, 10)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("invalid value %q", p.rawValue)
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(p.rawPayload, "0x"))
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}

	p.key = key
	p.value = value
	p.payload = payload

	return nil
}
