package nonce

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type NonceResult struct {
	Signer   string `json:"signer"`
	Channel  uint32 `json:"channel"`
	Sequence uint32 `json:"sequence"`
	Nonce    uint64 `json:"nonce"`
}

func (r *NonceResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[RELAY NONCE]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Signer|%s", r.Signer),
		fmt.Sprintf("Channel|%d", r.Channel),
		fmt.Sprintf("Sequence|%d", r.Sequence),
		fmt.Sprintf("Nonce|%d", r.Nonce),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
