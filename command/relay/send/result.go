package send

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type SendResult struct {
	Nonce    uint64 `json:"nonce"`
	Value    string `json:"value"`
	Returned string `json:"returned"`
}

func (r *SendResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[RELAY CALL EXECUTED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Nonce|%d", r.Nonce),
		fmt.Sprintf("Value|%s", r.Value),
		fmt.Sprintf("Returned|%s", r.Returned),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
