package setup

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type SetupResult struct {
	Name        string `json:"name"`
	Account     string `json:"account"`
	ChainID     uint64 `json:"chain_id"`
	Owner       string `json:"owner"`
	Controllers int    `json:"controllers"`
}

func (r *SetupResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[SETUP COMPLETED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Name|%s", r.Name),
		fmt.Sprintf("Account|%s", r.Account),
		fmt.Sprintf("Chain ID|%d", r.ChainID),
		fmt.Sprintf("Owner|%s", r.Owner),
		fmt.Sprintf("Controllers|%d", r.Controllers),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
