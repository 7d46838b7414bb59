package keygen

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xgr-network/xgr-keymanager/command"
	"github.com/xgr-network/xgr-keymanager/command/helper"
	"github.com/xgr-network/xgr-keymanager/crypto"
)

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generates a fresh relay signer key",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	key, err := crypto.GenerateECDSAKey()
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(&KeygenResult{
		Address:    crypto.PubKeyToAddress(key.PubKey()).String(),
		PrivateKey: crypto.MarshalECDSAPrivateKey(key),
	})
}

type KeygenResult struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

func (r *KeygenResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[SIGNER KEY GENERATED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Address|%s", r.Address),
		fmt.Sprintf("Private key|%s", r.PrivateKey),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
