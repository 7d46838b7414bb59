package sign

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type SignResult struct {
	Signer    string `json:"signer"`
	Nonce     uint64 `json:"nonce"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`

	// Envelope is the RLP encoded call, ready for relay send --envelope.
	Envelope string `json:"envelope"`
}

func (r *SignResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[RELAY CALL SIGNED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Signer|%s", r.Signer),
		fmt.Sprintf("Nonce|%d", r.Nonce),
		fmt.Sprintf("Digest|%s", r.Digest),
		fmt.Sprintf("Signature|%s", r.Signature),
		fmt.Sprintf("Envelope|%s", r.Envelope),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
